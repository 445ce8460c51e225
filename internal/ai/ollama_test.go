package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChat(t *testing.T) {
	var gotReq ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ollamaChatResp{
			Message: Message{Role: RoleAssistant, Content: "local reply"},
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3:latest")
	out, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "local reply", out)

	assert.Equal(t, "llama3:latest", gotReq.Model)
	assert.False(t, gotReq.Stream)
	assert.EqualValues(t, 150, gotReq.Options["num_predict"])
}

func TestOllamaChatInlineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResp{Error: "model not found"})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nope")
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "ollama", ge.Provider)
}

func TestOllamaChatEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResp{Message: Message{Role: RoleAssistant, Content: "   "}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3:latest")
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, ErrNoResponse)
}

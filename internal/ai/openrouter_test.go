package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestOpenRouter(url string) *OpenRouterProvider {
	p := NewOpenRouterProvider(url, "test-key", "test-model", "", "")
	return p
}

func TestOpenRouterChatReturnsFirstChoice(t *testing.T) {
	var gotAuth string
	var gotReq openRouterChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hi there"}},
			},
		})
	}))
	defer srv.Close()

	p := newTestOpenRouter(srv.URL)
	out, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "hi there" {
		t.Fatalf("reply = %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotReq.MaxTokens != 150 || gotReq.Temperature != 0.7 {
		t.Fatalf("generation params not applied: %+v", gotReq)
	}
}

func TestOpenRouterChatEmptyChoicesIsErrNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	p := newTestOpenRouter(srv.URL)
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrNoResponse) {
		t.Fatalf("err = %v, want ErrNoResponse", err)
	}
}

func TestOpenRouterChatUpstreamErrorIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream on fire`))
	}))
	defer srv.Close()

	p := newTestOpenRouter(srv.URL)
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GatewayError", err)
	}
	if ge.Provider != "openrouter" {
		t.Fatalf("provider = %q", ge.Provider)
	}
}

func TestOpenRouterChatRequiresAPIKey(t *testing.T) {
	p := NewOpenRouterProvider("http://localhost:0", "", "m", "", "")
	_, err := p.Chat(context.Background(), nil)
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GatewayError", err)
	}
}

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClassifierPostsMultipartFrame(t *testing.T) {
	frame := []byte("jpeg-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer f.Close()
		got, _ := io.ReadAll(f)
		if !bytes.Equal(got, frame) {
			t.Errorf("uploaded frame mismatch: %d bytes", len(got))
		}
		json.NewEncoder(w).Encode(Result{Emotion: "surprised", Confidence: 0.64})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL)
	res, err := c.Classify(context.Background(), frame)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Emotion != "surprised" {
		t.Fatalf("emotion = %q", res.Emotion)
	}
}

func TestHTTPClassifierSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL)
	if _, err := c.Classify(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected upstream error")
	}
}

func TestHTTPClassifierRejectsEmptyLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL)
	if _, err := c.Classify(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for empty label")
	}
}

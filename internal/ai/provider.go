package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates a single completion for an ordered conversation.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ErrNoResponse is returned when the provider answers successfully but the
// completion text is empty. Callers must not persist an empty bot message.
var ErrNoResponse = errors.New("no response generated")

// GatewayError wraps a transport or provider-side failure, carrying the
// provider's own message for non-production diagnostics.
type GatewayError struct {
	Provider string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

type Factory func(ctx context.Context) (Provider, error)

// Registry maps provider names to factories so the configured backend can be
// swapped without touching callers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx)
}

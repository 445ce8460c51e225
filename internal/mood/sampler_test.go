package mood

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/emofriend/emofriend-backend/internal/classify"
)

type stubSource struct {
	frame []byte
	err   error
}

func (s *stubSource) NextFrame(context.Context) ([]byte, error) {
	return s.frame, s.err
}

type stubClassifier struct {
	mu      sync.Mutex
	results []classify.Result
	errs    []error
	calls   int
}

func (s *stubClassifier) Classify(context.Context, []byte) (classify.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return classify.Result{}, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	if len(s.results) == 0 {
		return classify.Result{}, errors.New("no result configured")
	}
	return s.results[len(s.results)-1], nil
}

func waitForLabel(t *testing.T, store Store, userID, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := store.Get(context.Background(), userID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := store.Get(context.Background(), userID)
	t.Fatalf("label = %q, want %q", got, want)
}

func TestSamplerPublishesLabels(t *testing.T) {
	store := NewMemoryStore()
	c := &stubClassifier{results: []classify.Result{{Emotion: "happy"}}}
	s := NewSampler(&stubSource{frame: []byte("f")}, c, store, "u1", 10*time.Millisecond, nil)

	s.Start(context.Background())
	defer s.Stop()

	waitForLabel(t, store, "u1", "happy")
}

func TestSamplerKeepsLastGoodLabelOnFailure(t *testing.T) {
	store := NewMemoryStore()
	c := &stubClassifier{
		results: []classify.Result{{Emotion: "sad"}},
		errs:    []error{nil, errors.New("model crashed"), errors.New("model crashed")},
	}
	s := NewSampler(&stubSource{frame: []byte("f")}, c, store, "u1", 10*time.Millisecond, nil)

	s.Start(context.Background())
	defer s.Stop()

	waitForLabel(t, store, "u1", "sad")

	// Let a few failing ticks pass; label must survive them.
	time.Sleep(50 * time.Millisecond)
	got, _ := store.Get(context.Background(), "u1")
	if got != "sad" {
		t.Fatalf("label after failures = %q, want sad", got)
	}
}

func TestSamplerSkipsTickWithoutFrame(t *testing.T) {
	store := NewMemoryStore()
	c := &stubClassifier{results: []classify.Result{{Emotion: "happy"}}}
	s := NewSampler(&stubSource{err: errors.New("no capture")}, c, store, "u1", 10*time.Millisecond, nil)

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	c.mu.Lock()
	calls := c.calls
	c.mu.Unlock()
	if calls != 0 {
		t.Fatalf("classifier called %d times without frames", calls)
	}
	got, _ := store.Get(context.Background(), "u1")
	if got != StateUnknown {
		t.Fatalf("label = %q, want %q", got, StateUnknown)
	}
}

func TestSamplerStopTerminatesLoop(t *testing.T) {
	store := NewMemoryStore()
	c := &stubClassifier{results: []classify.Result{{Emotion: "happy"}}}
	s := NewSampler(&stubSource{frame: []byte("f")}, c, store, "u1", 5*time.Millisecond, nil)

	s.Start(context.Background())
	waitForLabel(t, store, "u1", "happy")
	s.Stop()

	c.mu.Lock()
	before := c.calls
	c.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	c.mu.Lock()
	after := c.calls
	c.mu.Unlock()
	if after != before {
		t.Fatalf("classifier still ticking after Stop: %d -> %d", before, after)
	}
}

func TestSamplerImmediateStopAfterStart(t *testing.T) {
	store := NewMemoryStore()
	c := &stubClassifier{results: []classify.Result{{Emotion: "happy"}}}

	// Stop often runs before the loop goroutine is scheduled; teardown
	// must neither panic nor hang.
	for i := 0; i < 200; i++ {
		s := NewSampler(&stubSource{frame: []byte("f")}, c, store, "u1", time.Hour, nil)
		s.Start(context.Background())
		s.Stop()
	}
}

func TestSamplerDoubleStartIsNoOp(t *testing.T) {
	store := NewMemoryStore()
	c := &stubClassifier{results: []classify.Result{{Emotion: "happy"}}}
	s := NewSampler(&stubSource{frame: []byte("f")}, c, store, "u1", 10*time.Millisecond, nil)

	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
}

package mood

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emofriend/emofriend-backend/internal/classify"
)

// FrameSource yields the most recent capture frame. An error means no frame
// is available right now; the sampler skips the tick.
type FrameSource interface {
	NextFrame(ctx context.Context) ([]byte, error)
}

// Sampler periodically classifies frames and publishes the label to the mood
// store. Classification failures never interrupt anything: the last
// known-good label simply stays in place. The sampler is tied to an explicit
// Start/Stop lifecycle, not garbage collection.
type Sampler struct {
	source     FrameSource
	classifier classify.Classifier
	store      Store
	userID     string
	interval   time.Duration
	log        *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSampler(src FrameSource, c classify.Classifier, store Store, userID string, interval time.Duration, log *zap.Logger) *Sampler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sampler{
		source:     src,
		classifier: c,
		store:      store,
		userID:     userID,
		interval:   interval,
		log:        log,
	}
}

// Start launches the sampling loop. Calling Start on a running sampler is a
// no-op.
func (s *Sampler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	// done is handed over here; Stop may nil the fields before the
	// goroutine is ever scheduled.
	go s.run(ctx, done)
}

// Stop cancels the loop and waits for it to exit.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Sampler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Sampler) sample(ctx context.Context) {
	frame, err := s.source.NextFrame(ctx)
	if err != nil {
		s.log.Debug("no frame available", zap.Error(err))
		return
	}

	res, err := s.classifier.Classify(ctx, frame)
	if err != nil {
		// Keep the last known-good label rather than resetting.
		s.log.Warn("mood classification failed", zap.String("user_id", s.userID), zap.Error(err))
		return
	}

	if err := s.store.Set(ctx, s.userID, res.Emotion); err != nil {
		s.log.Warn("mood store update failed", zap.String("user_id", s.userID), zap.Error(err))
	}
}

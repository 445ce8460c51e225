// Package classify is the boundary to the external emotion classifier.
// The classifier is treated as untrusted and unreliable: callers keep the
// last known-good mood label when a classification fails.
package classify

import (
	"context"
	"errors"
)

// MaxFrameBytes caps a single image frame. Oversized input is discarded
// without retry.
const MaxFrameBytes = 5 << 20

var (
	ErrPayloadTooLarge = errors.New("image frame exceeds size limit")
	ErrEmptyFrame      = errors.New("empty image frame")
)

// Result is the classifier's verdict for one frame.
type Result struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence,omitempty"`
}

type Classifier interface {
	Classify(ctx context.Context, frame []byte) (Result, error)
}

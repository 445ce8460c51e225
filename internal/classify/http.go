package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// HTTPClassifier posts the frame to a remote classifier service as a
// multipart upload and decodes the JSON verdict.
type HTTPClassifier struct {
	URL    string
	Client *http.Client
}

func NewHTTPClassifier(url string) *HTTPClassifier {
	return &HTTPClassifier{
		URL:    url,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (h *HTTPClassifier) Classify(ctx context.Context, frame []byte) (Result, error) {
	if len(frame) == 0 {
		return Result{}, ErrEmptyFrame
	}
	if len(frame) > MaxFrameBytes {
		return Result{}, ErrPayloadTooLarge
	}
	if strings.TrimSpace(h.URL) == "" {
		return Result{}, errors.New("classifier url is empty")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "frame.img")
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(frame); err != nil {
		return Result{}, err
	}
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.Client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Result{}, fmt.Errorf("classifier: %s", msg)
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("parse classifier response: %w", err)
	}
	if strings.TrimSpace(res.Emotion) == "" {
		return Result{}, errors.New("classifier returned no label")
	}
	return res, nil
}

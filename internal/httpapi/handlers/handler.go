package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/emofriend/emofriend-backend/internal/chat"
	"github.com/emofriend/emofriend-backend/internal/classify"
	"github.com/emofriend/emofriend-backend/internal/config"
	"github.com/emofriend/emofriend-backend/internal/mood"
)

// JobPublisher enqueues async reply jobs. Nil disables the async send path.
type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Handler struct {
	Cfg        config.Config
	Log        *zap.Logger
	ChatSvc    *chat.Service
	Moods      mood.Store
	Classifier classify.Classifier
	Rabbit     JobPublisher
}

func New(cfg config.Config, log *zap.Logger, svc *chat.Service, moods mood.Store, classifier classify.Classifier, rabbit JobPublisher) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Cfg:        cfg,
		Log:        log,
		ChatSvc:    svc,
		Moods:      moods,
		Classifier: classifier,
		Rabbit:     rabbit,
	}
}

// errorBody builds the {error, details?} payload. Technical detail is echoed
// only outside production mode.
func (h *Handler) errorBody(msg string, err error) map[string]any {
	body := map[string]any{"error": msg}
	if err != nil && !h.Cfg.IsProduction() {
		body["details"] = err.Error()
	}
	return body
}

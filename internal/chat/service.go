package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emofriend/emofriend-backend/internal/ai"
	"github.com/emofriend/emofriend-backend/internal/mood"
)

// Service orchestrates the session and message lifecycle: it is the only
// writer on the send path and owns the Idle -> Sending -> Idle transition
// per session.
type Service struct {
	repo     *Repo
	provider ai.Provider
	moods    mood.Store
	window   int
	log      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(repo *Repo, provider ai.Provider, moods mood.Store, window int, log *zap.Logger) *Service {
	if window <= 0 {
		window = ai.HistoryWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	if moods == nil {
		moods = mood.NewMemoryStore()
	}
	return &Service{
		repo:     repo,
		provider: provider,
		moods:    moods,
		window:   window,
		log:      log,
		inFlight: make(map[string]struct{}),
	}
}

func (s *Service) CreateSession(ctx context.Context, userID, name string) (*Session, error) {
	return s.repo.CreateSession(ctx, userID, name)
}

// ListSessions never fails the caller: on a store error it logs and returns
// an empty list, since an empty sidebar is recoverable and a hard error is
// not. Orphaned empty sessions are returned like any other.
func (s *Service) ListSessions(ctx context.Context, userID string) []Session {
	sessions, err := s.repo.ListSessions(ctx, userID)
	if err != nil {
		s.log.Error("list sessions failed", zap.String("user_id", userID), zap.Error(err))
		return []Session{}
	}
	return sessions
}

func (s *Service) RenameSession(ctx context.Context, userID, sessionID, name string) error {
	return s.repo.RenameSession(ctx, userID, sessionID, name)
}

// DeleteSession cascades to the session's messages before removing the
// session record. Deleting the last session leaves the user session-less; a
// replacement is created on demand, not here.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	return s.repo.DeleteSession(ctx, userID, sessionID)
}

func (s *Service) ListMessages(ctx context.Context, userID, sessionID string) ([]Message, error) {
	return s.repo.ListMessages(ctx, userID, sessionID)
}

func (s *Service) DeleteMessage(ctx context.Context, userID, sessionID string, messageID uint64) error {
	return s.repo.DeleteMessage(ctx, userID, sessionID, messageID)
}

func (s *Service) ClearMessages(ctx context.Context, userID, sessionID string) error {
	return s.repo.ClearMessages(ctx, userID, sessionID)
}

// acquireSend takes the per-session send slot, rejecting concurrent sends on
// the same session outright instead of queueing them.
func (s *Service) acquireSend(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *Service) releaseSend(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

// Send runs the full send flow: persist the user's message, call the
// gateway with the current mood and a trimmed history window, then persist
// the reply. On gateway failure the user's message stays put and no bot
// message is written; there is no automatic retry.
func (s *Service) Send(ctx context.Context, userID, sessionID, text string, photoURL *string) (userMsg, botMsg *Message, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyInput
	}

	if !s.acquireSend(sessionID) {
		return nil, nil, ErrSendInFlight
	}
	defer s.releaseSend(sessionID)

	if _, err := s.repo.GetSession(ctx, userID, sessionID); err != nil {
		return nil, nil, err
	}

	// History is captured before the new message so it holds only prior
	// turns; the current input is framed separately by the prompt builder.
	history, err := s.historyWindow(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	userMsg, err = s.repo.InsertMessage(ctx, userID, sessionID, text, false, photoURL)
	if err != nil {
		return nil, nil, err
	}

	reply, err := s.generate(ctx, userID, history, text)
	if err != nil {
		return userMsg, nil, err
	}

	// The session may have been deleted while the gateway call was in
	// flight; discard the reply rather than writing to a removed session.
	if _, err := s.repo.GetSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return userMsg, nil, ErrSessionDeleted
		}
		return userMsg, nil, err
	}

	botMsg, err = s.repo.InsertMessage(ctx, userID, sessionID, reply, true, nil)
	if err != nil {
		return userMsg, nil, err
	}
	return userMsg, botMsg, nil
}

// GenerateReply produces and persists the bot turn for a message that was
// already stored, used by the async worker.
func (s *Service) GenerateReply(ctx context.Context, userID, sessionID string) (*Message, error) {
	if _, err := s.repo.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	// The stored history already ends with the user's pending message;
	// treat its last turn as the current input.
	history, err := s.historyWindow(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrEmptyInput
	}
	current := history[len(history)-1]
	history = history[:len(history)-1]

	reply, err := s.generate(ctx, userID, history, current.Text)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionDeleted
		}
		return nil, err
	}
	return s.repo.InsertMessage(ctx, userID, sessionID, reply, true, nil)
}

// Reply answers a stateless prompt (the legacy /chatbot contract) with a
// caller-supplied mood and history.
func (s *Service) Reply(ctx context.Context, userInput, moodLabel string, history []ai.Turn) (string, error) {
	if strings.TrimSpace(userInput) == "" {
		return "", ErrEmptyInput
	}
	return s.provider.Chat(ctx, ai.BuildMessages(moodLabel, history, userInput))
}

func (s *Service) generate(ctx context.Context, userID string, history []ai.Turn, userInput string) (string, error) {
	label, err := s.moods.Get(ctx, userID)
	if err != nil {
		s.log.Warn("mood lookup failed", zap.String("user_id", userID), zap.Error(err))
		label = mood.StateUnknown
	}
	return s.provider.Chat(ctx, ai.BuildMessages(label, history, userInput))
}

func (s *Service) historyWindow(ctx context.Context, sessionID string) ([]ai.Turn, error) {
	recent, err := s.repo.ListRecentMessages(ctx, sessionID, s.window)
	if err != nil {
		return nil, err
	}
	// reverse to chronological order
	turns := make([]ai.Turn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		turns = append(turns, ai.Turn{IsUser: !m.IsChatbot, Text: m.Text})
	}
	return turns, nil
}

// ValidateSession confirms the session exists and belongs to userID without
// touching it.
func (s *Service) ValidateSession(ctx context.Context, userID, sessionID string) error {
	_, err := s.repo.GetSession(ctx, userID, sessionID)
	return err
}

// Job helpers for the async send path.

func (s *Service) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	return s.repo.CreateJobOrGetExisting(ctx, job)
}

// FailJob closes a job that can never run, so an idempotent retry does not
// wait on it forever.
func (s *Service) FailJob(ctx context.Context, jobID, reason string) error {
	return s.repo.MarkJobFailed(ctx, jobID, reason)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJobByID(ctx, jobID)
}

func (s *Service) InsertUserMessage(ctx context.Context, userID, sessionID, text string, photoURL *string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if _, err := s.repo.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.InsertMessage(ctx, userID, sessionID, text, false, photoURL)
}

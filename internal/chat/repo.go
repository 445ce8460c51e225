package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/emofriend/emofriend-backend/internal/common"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Migrate creates the chat tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Session{}, &Message{}, &Job{})
}

// DefaultSessionName derives the human-readable fallback name from the
// creation time, matching the "Chat dd/MM/yyyy HH:mm" display convention.
func DefaultSessionName(t time.Time) string {
	return "Chat " + t.Format("02/01/2006 15:04")
}

func (r *Repo) CreateSession(ctx context.Context, userID, name string) (*Session, error) {
	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if name == "" {
		name = DefaultSessionName(now)
	}

	s := &Session{
		SessionID: sid,
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession resolves a session owned by userID. Sessions owned by someone
// else are reported as not found rather than forbidden.
func (r *Repo) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

// ListSessions returns the user's sessions newest first. Creation-time ties
// are broken by insertion order so the listing is stable.
func (r *Repo) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	var sessions []Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *Repo) RenameSession(ctx context.Context, userID, sessionID, name string) error {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteSession purges the session's messages first, then removes the
// session row. The two phases are deliberately separate transactions: an
// interruption between them leaves an empty orphan session, which reads must
// tolerate, never orphaned messages.
func (r *Repo) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := r.GetSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := r.ClearMessages(ctx, userID, sessionID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Delete(&Session{}).Error
}

// InsertMessage assigns the author uid from isChatbot and stamps the
// creation time at write time so ordering stays consistent across clients.
func (r *Repo) InsertMessage(ctx context.Context, userID, sessionID, text string, isChatbot bool, photoURL *string) (*Message, error) {
	author := userID
	if isChatbot {
		author = ChatbotUID
	}
	m := &Message{
		SessionID: sessionID,
		AuthorUID: author,
		Text:      text,
		PhotoURL:  photoURL,
		IsChatbot: isChatbot,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns a session's messages oldest first. Equal timestamps
// fall back to insertion order via the auto-increment id, so the store never
// reorders on read. A missing session yields an empty list, not an error:
// callers racing a delete see "no messages" rather than a failure.
func (r *Repo) ListMessages(ctx context.Context, userID, sessionID string) ([]Message, error) {
	if _, err := r.GetSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Message{}, nil
		}
		return nil, err
	}

	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListRecentMessages returns up to limit most recent messages in DESC order
// (newest first); callers reverse for the provider.
func (r *Repo) ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 5
	}
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteMessage is idempotent: deleting an id that is already gone is not an
// error.
func (r *Repo) DeleteMessage(ctx context.Context, userID, sessionID string, messageID uint64) error {
	if _, err := r.GetSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", messageID, sessionID).
		Delete(&Message{}).Error
}

// ClearMessages removes every message of a session in one transaction, so a
// concurrent ListMessages observes all-or-nothing.
func (r *Repo) ClearMessages(ctx context.Context, userID, sessionID string) error {
	if _, err := r.GetSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("session_id = ?", sessionID).Delete(&Message{}).Error
	})
}

// Job CRUD

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, replyMsgID uint64) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_message_id": replyMsgID,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}

func (r *Repo) GetJobByUserAndIdempotencyKey(ctx context.Context, userID, key string) (*Job, error) {
	var job Job
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJobOrGetExisting creates the job unless one already exists for the
// same (user, idempotency key), in which case the existing job is returned.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	existing, getErr := r.GetJobByUserAndIdempotencyKey(ctx, job.UserID, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

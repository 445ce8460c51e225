package chat

import "time"

// ChatbotUID is the sentinel author id for bot-authored messages. IsChatbot
// and AuthorUID always agree; the repo derives one from the other on write.
const ChatbotUID = "chatbot"

type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"id"`
	UserID    string    `gorm:"type:varchar(128);index;not null" json:"-"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Session) TableName() string { return "chat_sessions" }

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_session_id" json:"session_id"`
	AuthorUID string    `gorm:"type:varchar(128);not null" json:"uid"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	PhotoURL  *string   `gorm:"type:varchar(512)" json:"photo_url"`
	IsChatbot bool      `gorm:"not null" json:"is_chatbot"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

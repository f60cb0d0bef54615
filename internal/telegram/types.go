package telegram

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"interview-coach/internal/interview"
)

// Bot представляет Telegram бота
type Bot struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// Update представляет обновление от Telegram
type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message представляет сообщение в Telegram
type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// User представляет пользователя Telegram
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat представляет чат в Telegram
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// SendMessageRequest представляет запрос на отправку сообщения
type SendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// GetUpdatesResponse представляет ответ от getUpdates
type GetUpdatesResponse struct {
	OK          bool     `json:"ok"`
	Result      []Update `json:"result"`
	Description string   `json:"description,omitempty"`
}

// SendMessageResponse представляет ответ от sendMessage
type SendMessageResponse struct {
	OK          bool     `json:"ok"`
	Result      *Message `json:"result,omitempty"`
	Description string   `json:"description,omitempty"`
}

// UserSession: диалог пользователя с ботом
type UserSession struct {
	UserID       int64
	State        SessionState
	Profile      interview.CandidateProfile
	SessionID    string
	LastActivity time.Time
}

// SessionState представляет состояние диалога
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateAwaitingName  SessionState = "awaiting_name"
	StateAwaitingRole  SessionState = "awaiting_role"
	StateAwaitingGrade SessionState = "awaiting_grade"
	StateInterview     SessionState = "interview"
	StateCompleted     SessionState = "completed"
)

package contract

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageIndex    = errors.New("invalid message index")
)

// Session is one persisted conversation. Id never changes; the backing file
// location may change when Name changes.
type Session struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	SystemPrompt string    `json:"system_prompt"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
	Messages     []Message `json:"messages"`
}

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionSummary struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
	MessageCount int       `json:"message_count"`
}

// ISessionRepository owns all Session and Message instances. Every mutation
// persists synchronously to the backing file before returning.
type ISessionRepository interface {
	Create(systemPrompt string) (*Session, error)
	Load(id string) (*Session, error)
	List() ([]SessionSummary, error)
	Delete(id string) error
	Rename(id, newName string) error
	AppendMessage(id, role, content string) error
	UpdateMessage(id string, index int, content string) error
	// TruncateMessages removes up to count messages from the tail and
	// returns how many were actually removed. Never fails on overshoot.
	TruncateMessages(id string, count int) (int, error)
	Clear(id string) error
}

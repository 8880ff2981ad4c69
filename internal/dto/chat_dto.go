package dto

import "time"

type SendChatRequest struct {
	Text string `json:"text" validate:"required"`
}

// StreamEvent is one frame of the /api/chat/stream event stream. Exactly one
// of the fields is set per frame.
type StreamEvent struct {
	Chunk string `json:"chunk,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

type MessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type UpdateMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type DeleteMessagesRequest struct {
	Count int `json:"count"`
}

// SessionNamingMessage is the payload published on the naming topic.
type SessionNamingMessage struct {
	SessionId string `json:"session_id"`
}

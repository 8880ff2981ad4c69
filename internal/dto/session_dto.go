package dto

import "time"

type CreateSessionRequest struct {
	SystemPrompt string `json:"system_prompt"`
}

type CreateSessionResponse struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type SessionSummaryResponse struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
	MessageCount int       `json:"message_count"`
}

type SessionResponse struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	SystemPrompt string    `json:"system_prompt"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
	MessageCount int       `json:"message_count"`
}

type RenameSessionRequest struct {
	Name string `json:"name" validate:"required"`
}

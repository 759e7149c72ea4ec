package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	Prompt    string     `json:"prompt" validate:"required"`
	SessionId *uuid.UUID `json:"sessionId,omitempty"`
}

type SendChatResponse struct {
	Response       string    `json:"response"`
	SessionId      uuid.UUID `json:"sessionId"`
	GeneratedTitle *string   `json:"generatedTitle"`
	LastMessage    string    `json:"lastMessage"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ChatHistoryItem struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type SessionSummary struct {
	Id           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"lastMessage"`
	MessageCount int       `json:"messageCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RenameSessionRequest struct {
	Title string `json:"title" validate:"required"`
}

type RenameSessionResponse struct {
	Id    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type CleanupResult struct {
	SessionsDeleted int64 `json:"sessionsDeleted"`
	MessagesDeleted int64 `json:"messagesDeleted"`
}

// ChatExchangeRecordedMessage is the payload published after every completed
// exchange; the consumer runs retention housekeeping for the session.
type ChatExchangeRecordedMessage struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	OwnerEmail    string    `json:"owner_email"`
}

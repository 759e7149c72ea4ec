package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	OwnerEmail    string
	Role          string
	Message       string
	CreatedAt     time.Time
}

const (
	ChatMessageRoleUser = "user"
	ChatMessageRoleAi   = "ai"
)

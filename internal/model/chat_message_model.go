package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index"`
	OwnerEmail    string    `gorm:"type:text;not null;index"`
	Role          string    `gorm:"type:text;not null"`
	Message       string    `gorm:"type:text;not null"`
	CreatedAt     time.Time `gorm:"index"`
}

func (ChatMessage) TableName() string {
	return "chats"
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerEmail   string    `gorm:"type:text;not null;index"` // Owner identity for data isolation
	Title        string    `gorm:"type:text;not null"`
	LastMessage  string    `gorm:"type:text"`
	MessageCount int       `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnedBy scopes a query to one owner identity.
type OwnedBy struct {
	Email string
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_email = ?", s.Email)
}

// ByChatSessionID filters messages belonging to one session.
type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// UpdatedBefore selects rows whose updated_at is older than the cutoff.
// Used by the expiry sweep on chat_sessions.
type UpdatedBefore struct {
	Cutoff time.Time
}

func (s UpdatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("updated_at < ?", s.Cutoff)
}

// UpdatedAfter keeps rows fresher than the cutoff. Read paths use it so
// expired sessions are never listed, even before a sweep has run.
type UpdatedAfter struct {
	Cutoff time.Time
}

func (s UpdatedAfter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("updated_at >= ?", s.Cutoff)
}

// CreatedBefore selects rows whose created_at is older than the cutoff.
// Used by the expiry sweep on chats.
type CreatedBefore struct {
	Cutoff time.Time
}

func (s CreatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at < ?", s.Cutoff)
}

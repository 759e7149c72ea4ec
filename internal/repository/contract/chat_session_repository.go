package contract

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// Rename updates title and updated_at in one statement. Returns false
	// when no row matched the id/owner pair.
	Rename(ctx context.Context, id uuid.UUID, ownerEmail, title string, now time.Time) (bool, error)

	// RecordExchange applies the post-exchange session update atomically:
	// last_message and updated_at are set while message_count is incremented
	// by two in the same statement, never read-modify-write.
	RecordExchange(ctx context.Context, id uuid.UUID, lastMessage string, now time.Time) error

	// AdjustMessageCount adds delta to message_count in one statement,
	// floored at zero. Used by retention trimming so the stored count keeps
	// matching the retrievable history.
	AdjustMessageCount(ctx context.Context, id uuid.UUID, delta int) error

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context, specs ...specification.Specification) (int64, error)
}

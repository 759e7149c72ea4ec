package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/chatbot"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeStore is a shared in-memory backing for the fake repositories. It
// interprets the same specifications the GORM implementations apply, so
// services run unchanged against it.
type fakeStore struct {
	mu       sync.Mutex
	sessions []*entity.ChatSession
	messages []*entity.ChatMessage
}

func splitSpecs(specs []specification.Specification) (filters []specification.Specification, order *specification.OrderBy, page *specification.Pagination) {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.OrderBy:
			o := s
			order = &o
		case specification.Pagination:
			p := s
			page = &p
		default:
			filters = append(filters, spec)
		}
	}
	return filters, order, page
}

func sessionMatches(sess *entity.ChatSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if sess.Id != s.ID {
				return false
			}
		case specification.OwnedBy:
			if sess.OwnerEmail != s.Email {
				return false
			}
		case specification.UpdatedBefore:
			if !sess.UpdatedAt.Before(s.Cutoff) {
				return false
			}
		case specification.UpdatedAfter:
			if sess.UpdatedAt.Before(s.Cutoff) {
				return false
			}
		}
	}
	return true
}

func messageMatches(msg *entity.ChatMessage, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByChatSessionID:
			if msg.ChatSessionId != s.ChatSessionID {
				return false
			}
		case specification.OwnedBy:
			if msg.OwnerEmail != s.Email {
				return false
			}
		case specification.CreatedBefore:
			if !msg.CreatedAt.Before(s.Cutoff) {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range s.IDs {
				if msg.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func paginate[T any](items []T, page *specification.Pagination) []T {
	if page == nil {
		return items
	}
	start := page.Offset
	if start > len(items) {
		return nil
	}
	end := len(items)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	return items[start:end]
}

type fakeSessionRepo struct {
	store *fakeStore
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *session
	r.store.sessions = append(r.store.sessions, &copied)
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeSessionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	filters, order, page := splitSpecs(specs)
	var result []*entity.ChatSession
	for _, sess := range r.store.sessions {
		if sessionMatches(sess, filters) {
			copied := *sess
			result = append(result, &copied)
		}
	}
	if order != nil {
		sort.SliceStable(result, func(i, j int) bool {
			var a, b time.Time
			if order.Field == "created_at" {
				a, b = result[i].CreatedAt, result[j].CreatedAt
			} else {
				a, b = result[i].UpdatedAt, result[j].UpdatedAt
			}
			if order.Desc {
				return a.After(b)
			}
			return a.Before(b)
		})
	}
	return paginate(result, page), nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakeSessionRepo) Rename(_ context.Context, id uuid.UUID, ownerEmail, title string, now time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, sess := range r.store.sessions {
		if sess.Id == id && sess.OwnerEmail == ownerEmail {
			sess.Title = title
			sess.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessionRepo) RecordExchange(_ context.Context, id uuid.UUID, lastMessage string, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, sess := range r.store.sessions {
		if sess.Id == id {
			sess.LastMessage = lastMessage
			sess.UpdatedAt = now
			sess.MessageCount += 2
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) AdjustMessageCount(_ context.Context, id uuid.UUID, delta int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, sess := range r.store.sessions {
		if sess.Id == id {
			sess.MessageCount += delta
			if sess.MessageCount < 0 {
				sess.MessageCount = 0
			}
			return nil
		}
	}
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.sessions[:0]
	for _, sess := range r.store.sessions {
		if sess.Id != id {
			kept = append(kept, sess)
		}
	}
	r.store.sessions = kept
	return nil
}

func (r *fakeSessionRepo) DeleteAll(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	filters, _, _ := splitSpecs(specs)
	var deleted int64
	kept := r.store.sessions[:0]
	for _, sess := range r.store.sessions {
		if sessionMatches(sess, filters) {
			deleted++
			continue
		}
		kept = append(kept, sess)
	}
	r.store.sessions = kept
	return deleted, nil
}

type fakeMessageRepo struct {
	store *fakeStore
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *msg
	r.store.messages = append(r.store.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) CreateBulk(ctx context.Context, msgs []*entity.ChatMessage) error {
	for _, msg := range msgs {
		if err := r.Create(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMessageRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	filters, order, page := splitSpecs(specs)
	var result []*entity.ChatMessage
	for _, msg := range r.store.messages {
		if messageMatches(msg, filters) {
			copied := *msg
			result = append(result, &copied)
		}
	}
	if order != nil {
		sort.SliceStable(result, func(i, j int) bool {
			if order.Desc {
				return result[i].CreatedAt.After(result[j].CreatedAt)
			}
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		})
	}
	return paginate(result, page), nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakeMessageRepo) DeleteAll(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	filters, _, _ := splitSpecs(specs)
	var deleted int64
	kept := r.store.messages[:0]
	for _, msg := range r.store.messages {
		if messageMatches(msg, filters) {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	r.store.messages = kept
	return deleted, nil
}

type fakeUnitOfWork struct {
	store *fakeStore
}

func (u *fakeUnitOfWork) Begin(context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error               { return nil }
func (u *fakeUnitOfWork) Rollback() error             { return nil }

func (u *fakeUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{store: f.store}
}

// stubProvider records the windows it was handed and replies with a canned
// answer or error.
type stubProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	windows [][]*chatbot.ChatHistory
}

func (p *stubProvider) GenerateReply(_ context.Context, history []*chatbot.ChatHistory) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.windows = append(p.windows, history)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *stubProvider) lastWindow() []*chatbot.ChatHistory {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.windows) == 0 {
		return nil
	}
	return p.windows[len(p.windows)-1]
}

type stubPublisher struct {
	mu       sync.Mutex
	payloads []*dto.ChatExchangeRecordedMessage
}

func (p *stubPublisher) PublishExchangeRecorded(_ context.Context, payload *dto.ChatExchangeRecordedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

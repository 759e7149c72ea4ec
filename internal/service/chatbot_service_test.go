package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/pkg/chatbot"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "alice@example.com"

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{
		GeminiModel:           "test-model",
		MaxSessionsPerUser:    10,
		MaxMessagesPerSession: 20,
		ContextWindowSize:     10,
		ExpiryDays:            7,
		SweepThrottle:         10 * time.Minute,
		ExchangeTopic:         "CHAT_EXCHANGE_RECORDED",
	}
}

func newTestService(store *fakeStore, provider *stubProvider) (IChatbotService, *stubPublisher) {
	publisher := &stubPublisher{}
	svc := NewChatbotService(
		&fakeFactory{store: store},
		provider,
		nil,
		publisher,
		nil,
		noopLogger{},
		testChatConfig(),
	)
	return svc, publisher
}

func seedSession(store *fakeStore, owner string, updatedAt time.Time) *entity.ChatSession {
	sess := &entity.ChatSession{
		Id:         uuid.New(),
		OwnerEmail: owner,
		Title:      "Seeded",
		CreatedAt:  updatedAt,
		UpdatedAt:  updatedAt,
	}
	store.sessions = append(store.sessions, sess)
	return sess
}

func seedExchange(store *fakeStore, sess *entity.ChatSession, prompt, reply string, at time.Time) {
	store.messages = append(store.messages,
		&entity.ChatMessage{
			Id: uuid.New(), ChatSessionId: sess.Id, OwnerEmail: sess.OwnerEmail,
			Role: entity.ChatMessageRoleUser, Message: prompt, CreatedAt: at,
		},
		&entity.ChatMessage{
			Id: uuid.New(), ChatSessionId: sess.Id, OwnerEmail: sess.OwnerEmail,
			Role: entity.ChatMessageRoleAi, Message: reply, CreatedAt: at.Add(time.Millisecond),
		},
	)
	sess.MessageCount += 2
	sess.LastMessage = reply
	sess.UpdatedAt = at
}

func TestSendChatCreatesSession(t *testing.T) {
	store := &fakeStore{}
	provider := &stubProvider{reply: "It means being aware."}
	svc, publisher := newTestService(store, provider)

	res, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{
		Prompt: "What is the meaning of consciousness?",
	})
	require.NoError(t, err)

	require.NotNil(t, res.GeneratedTitle)
	assert.Equal(t, "Meaning Consciousness", *res.GeneratedTitle)
	assert.Equal(t, "It means being aware.", res.Response)
	assert.Equal(t, "It means being aware.", res.LastMessage)

	require.Len(t, store.sessions, 1)
	sess := store.sessions[0]
	assert.Equal(t, res.SessionId, sess.Id)
	assert.Equal(t, testOwner, sess.OwnerEmail)
	assert.Equal(t, "Meaning Consciousness", sess.Title)
	assert.Equal(t, 2, sess.MessageCount)
	assert.Equal(t, "It means being aware.", sess.LastMessage)

	require.Len(t, store.messages, 2)
	assert.Equal(t, entity.ChatMessageRoleUser, store.messages[0].Role)
	assert.Equal(t, entity.ChatMessageRoleAi, store.messages[1].Role)
	assert.True(t, store.messages[0].CreatedAt.Before(store.messages[1].CreatedAt))

	require.Len(t, publisher.payloads, 1)
	assert.Equal(t, sess.Id, publisher.payloads[0].ChatSessionId)
	assert.Equal(t, testOwner, publisher.payloads[0].OwnerEmail)
}

func TestSendChatAppendsToExistingSession(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	sess := seedSession(store, testOwner, now.Add(-time.Hour))
	seedExchange(store, sess, "First question", "First answer", now.Add(-time.Hour))

	provider := &stubProvider{reply: "Second answer"}
	svc, _ := newTestService(store, provider)

	res, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{
		Prompt:    "Second question",
		SessionId: &sess.Id,
	})
	require.NoError(t, err)

	assert.Nil(t, res.GeneratedTitle)
	assert.Equal(t, sess.Id, res.SessionId)

	require.Len(t, store.sessions, 1)
	assert.Equal(t, 4, store.sessions[0].MessageCount)
	assert.Equal(t, "Second answer", store.sessions[0].LastMessage)
	assert.Len(t, store.messages, 4)

	// prior turns reach the completion provider, oldest first
	window := provider.lastWindow()
	require.Len(t, window, 3)
	assert.Equal(t, "First question", window[0].Chat)
	assert.Equal(t, chatbot.ChatMessageRoleUser, window[0].Role)
	assert.Equal(t, "First answer", window[1].Chat)
	assert.Equal(t, chatbot.ChatMessageRoleModel, window[1].Role)
	assert.Equal(t, "Second question", window[2].Chat)
}

func TestSendChatContextWindowIsBounded(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	sess := seedSession(store, testOwner, now)
	for i := 0; i < 7; i++ {
		at := now.Add(time.Duration(i-10) * time.Minute)
		seedExchange(store, sess, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), at)
	}

	provider := &stubProvider{reply: "ok"}
	svc, _ := newTestService(store, provider)

	_, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{
		Prompt:    "latest",
		SessionId: &sess.Id,
	})
	require.NoError(t, err)

	// 14 stored messages, window of 10, plus the new prompt
	window := provider.lastWindow()
	require.Len(t, window, 11)
	assert.Equal(t, "q2", window[0].Chat)
	assert.Equal(t, "latest", window[10].Chat)
	assert.Equal(t, chatbot.ChatMessageRoleUser, window[10].Role)
}

func TestSendChatUnknownSession(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store, &stubProvider{reply: "ok"})

	missing := uuid.New()
	_, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{
		Prompt:    "hello",
		SessionId: &missing,
	})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.CodeNotFound, appErr.Code)
	assert.Empty(t, store.messages)
}

func TestSendChatForeignSessionRejected(t *testing.T) {
	store := &fakeStore{}
	other := seedSession(store, "bob@example.com", time.Now())

	svc, _ := newTestService(store, &stubProvider{reply: "ok"})

	_, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{
		Prompt:    "hello",
		SessionId: &other.Id,
	})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.CodeNotFound, appErr.Code)
}

func TestSendChatQuotaBoundary(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	for i := 0; i < 9; i++ {
		seedSession(store, testOwner, now)
	}

	svc, _ := newTestService(store, &stubProvider{reply: "ok"})

	// tenth session is allowed
	res, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{Prompt: "tenth chat"})
	require.NoError(t, err)
	assert.Len(t, store.sessions, 10)

	// eleventh is rejected
	_, err = svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{Prompt: "eleventh chat"})
	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.CodeQuotaExceeded, appErr.Code)
	assert.Len(t, store.sessions, 10)

	// existing sessions keep working at the quota
	_, err = svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{
		Prompt:    "follow up",
		SessionId: &res.SessionId,
	})
	assert.NoError(t, err)

	// another owner is unaffected
	_, err = svc.SendChat(context.Background(), "bob@example.com", &dto.SendChatRequest{Prompt: "fresh start"})
	assert.NoError(t, err)
}

func TestSendChatQuotaIgnoresExpiredSessions(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	for i := 0; i < 10; i++ {
		seedSession(store, testOwner, now.AddDate(0, 0, -8))
	}

	svc, _ := newTestService(store, &stubProvider{reply: "ok"})

	// all ten sessions are expired: the owner sees an empty list and must be
	// able to start a new chat even before a sweep has removed them
	sessions, err := svc.GetAllSessions(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	res, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{Prompt: "fresh start"})
	require.NoError(t, err)
	assert.NotNil(t, res.GeneratedTitle)
}

func TestSendChatFallbackOnProviderFailure(t *testing.T) {
	store := &fakeStore{}
	provider := &stubProvider{err: errors.New("upstream down")}
	svc, _ := newTestService(store, provider)

	res, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{Prompt: "Explain entropy"})
	require.NoError(t, err)

	assert.Equal(t, ChatFallbackReply, res.Response)

	// the exchange is still persisted
	require.Len(t, store.messages, 2)
	assert.Equal(t, "Explain entropy", store.messages[0].Message)
	assert.Equal(t, ChatFallbackReply, store.messages[1].Message)
	assert.Equal(t, ChatFallbackReply, store.sessions[0].LastMessage)
}

func TestSendChatBlankPrompt(t *testing.T) {
	svc, _ := newTestService(&fakeStore{}, &stubProvider{reply: "ok"})

	_, err := svc.SendChat(context.Background(), testOwner, &dto.SendChatRequest{Prompt: "   "})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.CodeInvalidArgument, appErr.Code)
}

func TestGetChatHistoryRoundTripOrder(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	sess := seedSession(store, testOwner, now)
	seedExchange(store, sess, "q1", "a1", now.Add(-2*time.Minute))
	seedExchange(store, sess, "q2", "a2", now.Add(-1*time.Minute))

	svc, _ := newTestService(store, &stubProvider{})

	history, err := svc.GetChatHistory(context.Background(), testOwner, &sess.Id)
	require.NoError(t, err)

	require.Len(t, history, 4)
	assert.Equal(t, []string{"q1", "a1", "q2", "a2"}, []string{
		history[0].Message, history[1].Message, history[2].Message, history[3].Message,
	})
	assert.Equal(t, entity.ChatMessageRoleUser, history[0].Role)
	assert.Equal(t, entity.ChatMessageRoleAi, history[1].Role)
}

func TestGetChatHistoryAbsentSessionIsEmpty(t *testing.T) {
	svc, _ := newTestService(&fakeStore{}, &stubProvider{})

	missing := uuid.New()
	history, err := svc.GetChatHistory(context.Background(), testOwner, &missing)

	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGetChatHistoryOwnerIsolation(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	sess := seedSession(store, "bob@example.com", now)
	seedExchange(store, sess, "secret q", "secret a", now)

	svc, _ := newTestService(store, &stubProvider{})

	history, err := svc.GetChatHistory(context.Background(), testOwner, &sess.Id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGetAllSessionsOrderingAndExpiry(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	old := seedSession(store, testOwner, now.Add(-2*time.Hour))
	fresh := seedSession(store, testOwner, now.Add(-time.Minute))
	seedSession(store, testOwner, now.AddDate(0, 0, -8)) // expired, must not be listed
	seedSession(store, "bob@example.com", now)

	svc, _ := newTestService(store, &stubProvider{})

	sessions, err := svc.GetAllSessions(context.Background(), testOwner)
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, fresh.Id, sessions[0].Id)
	assert.Equal(t, old.Id, sessions[1].Id)
}

func TestRenameSession(t *testing.T) {
	store := &fakeStore{}
	sess := seedSession(store, testOwner, time.Now())

	svc, _ := newTestService(store, &stubProvider{})

	res, err := svc.RenameSession(context.Background(), testOwner, sess.Id, &dto.RenameSessionRequest{
		Title: "  Thermodynamics Deep Dive  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Thermodynamics Deep Dive", res.Title)
	assert.Equal(t, "Thermodynamics Deep Dive", store.sessions[0].Title)
}

func TestRenameSessionWrongOwner(t *testing.T) {
	store := &fakeStore{}
	sess := seedSession(store, "bob@example.com", time.Now())

	svc, _ := newTestService(store, &stubProvider{})

	_, err := svc.RenameSession(context.Background(), testOwner, sess.Id, &dto.RenameSessionRequest{Title: "Hijacked"})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.CodeNotFound, appErr.Code)
	assert.Equal(t, "Seeded", store.sessions[0].Title)
}

func TestDeleteSessionCascades(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	doomed := seedSession(store, testOwner, now)
	seedExchange(store, doomed, "q1", "a1", now)
	survivor := seedSession(store, testOwner, now)
	seedExchange(store, survivor, "q2", "a2", now)

	svc, _ := newTestService(store, &stubProvider{})

	err := svc.DeleteSession(context.Background(), testOwner, doomed.Id)
	require.NoError(t, err)

	require.Len(t, store.sessions, 1)
	assert.Equal(t, survivor.Id, store.sessions[0].Id)
	require.Len(t, store.messages, 2)
	for _, msg := range store.messages {
		assert.Equal(t, survivor.Id, msg.ChatSessionId)
	}
}

func TestDeleteSessionWrongOwner(t *testing.T) {
	store := &fakeStore{}
	sess := seedSession(store, "bob@example.com", time.Now())

	svc, _ := newTestService(store, &stubProvider{})

	err := svc.DeleteSession(context.Background(), testOwner, sess.Id)

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.CodeNotFound, appErr.Code)
	assert.Len(t, store.sessions, 1)
}

func TestSpecificationFiltersComposeInFakes(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	sess := seedSession(store, testOwner, now)
	seedExchange(store, sess, "old q", "old a", now.AddDate(0, 0, -9))
	seedExchange(store, sess, "new q", "new a", now)

	repo := (&fakeUnitOfWork{store: store}).ChatMessageRepository()
	stale, err := repo.FindAll(context.Background(),
		specification.ByChatSessionID{ChatSessionID: sess.Id},
		specification.CreatedBefore{Cutoff: now.AddDate(0, 0, -7)},
	)
	require.NoError(t, err)
	assert.Len(t, stale, 2)
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/chatbot"
	"ai-chat-be/pkg/events"
	pktNats "ai-chat-be/pkg/nats"

	"github.com/google/uuid"
)

// ChatFallbackReply is returned to the user whenever the completion service
// fails. Upstream outages must never interrupt a conversation.
const ChatFallbackReply = "Sorry, I couldn't generate a response."

// IChatbotService defines the chat session lifecycle operations
type IChatbotService interface {
	SendChat(ctx context.Context, ownerEmail string, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetChatHistory(ctx context.Context, ownerEmail string, sessionId *uuid.UUID) ([]*dto.ChatHistoryItem, error)
	GetAllSessions(ctx context.Context, ownerEmail string) ([]*dto.SessionSummary, error)
	RenameSession(ctx context.Context, ownerEmail string, sessionId uuid.UUID, request *dto.RenameSessionRequest) (*dto.RenameSessionResponse, error)
	DeleteSession(ctx context.Context, ownerEmail string, sessionId uuid.UUID) error
}

type chatbotService struct {
	uowFactory       unitofwork.RepositoryFactory
	provider         chatbot.Provider
	cleanupService   ICleanupService
	publisherService IPublisherService
	natsPub          *pktNats.Publisher
	sysLogger        logger.ILogger
	cfg              config.ChatConfig
}

func NewChatbotService(
	uowFactory unitofwork.RepositoryFactory,
	provider chatbot.Provider,
	cleanupService ICleanupService,
	publisherService IPublisherService,
	natsPub *pktNats.Publisher,
	sysLogger logger.ILogger,
	cfg config.ChatConfig,
) IChatbotService {
	return &chatbotService{
		uowFactory:       uowFactory,
		provider:         provider,
		cleanupService:   cleanupService,
		publisherService: publisherService,
		natsPub:          natsPub,
		sysLogger:        sysLogger,
		cfg:              cfg,
	}
}

// SendChat runs one full exchange: sweep, session resolution, context window
// assembly, completion call, transactional persistence, housekeeping event.
func (cs *chatbotService) SendChat(ctx context.Context, ownerEmail string, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	if ownerEmail == "" {
		return nil, serverutils.NewUnauthorized("Unauthorized")
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, serverutils.NewInvalidArgument("Prompt is required")
	}

	cs.sweepOwner(ctx, ownerEmail)

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	var chatSession *entity.ChatSession
	var generatedTitle *string

	if request.SessionId != nil {
		sess, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: *request.SessionId},
			specification.OwnedBy{Email: ownerEmail},
		)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return nil, serverutils.NewNotFound("Session not found")
		}
		chatSession = sess
	} else {
		// count only active sessions: expired ones may linger until a sweep
		// runs, and they never count against the quota
		count, err := uow.ChatSessionRepository().Count(ctx,
			specification.OwnedBy{Email: ownerEmail},
			specification.UpdatedAfter{Cutoff: now.AddDate(0, 0, -cs.cfg.ExpiryDays)},
		)
		if err != nil {
			return nil, err
		}
		if count >= int64(cs.cfg.MaxSessionsPerUser) {
			return nil, serverutils.NewQuotaExceeded(fmt.Sprintf(
				"Max %d chats allowed for free tier. Delete old chats to continue.",
				cs.cfg.MaxSessionsPerUser,
			))
		}

		title := chatbot.GenerateChatTitle(request.Prompt)
		generatedTitle = &title
		chatSession = &entity.ChatSession{
			Id:           uuid.New(),
			OwnerEmail:   ownerEmail,
			Title:        title,
			LastMessage:  request.Prompt,
			MessageCount: 0,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	history, err := cs.assembleContextWindow(ctx, uow, ownerEmail, chatSession, request.Prompt)
	if err != nil {
		return nil, err
	}

	reply := cs.generateReply(ctx, chatSession.Id, history)

	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		OwnerEmail:    ownerEmail,
		Role:          entity.ChatMessageRoleUser,
		Message:       request.Prompt,
		CreatedAt:     now,
	}
	aiMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		OwnerEmail:    ownerEmail,
		Role:          entity.ChatMessageRoleAi,
		Message:       reply,
		// +1ms keeps the pair ordered when both land in the same tick
		CreatedAt: now.Add(1 * time.Millisecond),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if generatedTitle != nil {
		if err := uow.ChatSessionRepository().Create(ctx, chatSession); err != nil {
			return nil, err
		}
	}
	if err := uow.ChatMessageRepository().CreateBulk(ctx, []*entity.ChatMessage{userMessage, aiMessage}); err != nil {
		return nil, err
	}
	if err := uow.ChatSessionRepository().RecordExchange(ctx, chatSession.Id, reply, now); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	cs.publishExchangeRecorded(ctx, chatSession.Id, ownerEmail)
	if generatedTitle != nil {
		cs.publishLifecycleEvent(ctx, events.NewChatSessionCreated(chatSession.Id.String(), ownerEmail, chatSession.Title))
	}

	return &dto.SendChatResponse{
		Response:       reply,
		SessionId:      chatSession.Id,
		GeneratedTitle: generatedTitle,
		LastMessage:    reply,
		UpdatedAt:      now,
	}, nil
}

// GetChatHistory lists a session's messages in insertion order. An absent or
// foreign session yields an empty list, not an error. Without a session id
// all of the owner's messages are returned.
func (cs *chatbotService) GetChatHistory(ctx context.Context, ownerEmail string, sessionId *uuid.UUID) ([]*dto.ChatHistoryItem, error) {
	if ownerEmail == "" {
		return nil, serverutils.NewUnauthorized("Unauthorized")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.OwnedBy{Email: ownerEmail},
		specification.OrderBy{Field: "created_at", Desc: false},
	}
	if sessionId != nil {
		specs = append(specs, specification.ByChatSessionID{ChatSessionID: *sessionId})
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ChatHistoryItem, 0, len(messages))
	for _, msg := range messages {
		items = append(items, &dto.ChatHistoryItem{
			Role:      msg.Role,
			Message:   msg.Message,
			CreatedAt: msg.CreatedAt,
		})
	}
	return items, nil
}

// GetAllSessions sweeps the owner's expired data, then lists surviving
// sessions newest-first, capped at the session quota. The listing query also
// filters on the expiry cutoff so a throttled sweep can never leak expired
// sessions into the response.
func (cs *chatbotService) GetAllSessions(ctx context.Context, ownerEmail string) ([]*dto.SessionSummary, error) {
	if ownerEmail == "" {
		return nil, serverutils.NewUnauthorized("Unauthorized")
	}

	cs.sweepOwner(ctx, ownerEmail)

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	cutoff := time.Now().AddDate(0, 0, -cs.cfg.ExpiryDays)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.OwnedBy{Email: ownerEmail},
		specification.UpdatedAfter{Cutoff: cutoff},
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.Pagination{Limit: cs.cfg.MaxSessionsPerUser},
	)
	if err != nil {
		return nil, err
	}

	summaries := make([]*dto.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, &dto.SessionSummary{
			Id:           s.Id,
			Title:        s.Title,
			LastMessage:  s.LastMessage,
			MessageCount: s.MessageCount,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	return summaries, nil
}

func (cs *chatbotService) RenameSession(ctx context.Context, ownerEmail string, sessionId uuid.UUID, request *dto.RenameSessionRequest) (*dto.RenameSessionResponse, error) {
	if ownerEmail == "" {
		return nil, serverutils.NewUnauthorized("Unauthorized")
	}
	title := strings.TrimSpace(request.Title)
	if title == "" {
		return nil, serverutils.NewInvalidArgument("Title is required")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	renamed, err := uow.ChatSessionRepository().Rename(ctx, sessionId, ownerEmail, title, time.Now())
	if err != nil {
		return nil, err
	}
	if !renamed {
		return nil, serverutils.NewNotFound("Session not found")
	}

	cs.publishLifecycleEvent(ctx, events.NewChatSessionRenamed(sessionId.String(), ownerEmail, title))

	return &dto.RenameSessionResponse{Id: sessionId, Title: title}, nil
}

// DeleteSession removes a session and cascade-deletes its messages.
func (cs *chatbotService) DeleteSession(ctx context.Context, ownerEmail string, sessionId uuid.UUID) error {
	if ownerEmail == "" {
		return serverutils.NewUnauthorized("Unauthorized")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.OwnedBy{Email: ownerEmail},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return serverutils.NewNotFound("Session not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	if _, err := uow.ChatMessageRepository().DeleteAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
	); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	cs.publishLifecycleEvent(ctx, events.NewChatSessionDeleted(sessionId.String(), ownerEmail))

	return nil
}

// assembleContextWindow loads the most recent messages of the session
// (oldest first) and appends the new user turn. The window is bounded so
// request size stays flat no matter how long the conversation runs.
func (cs *chatbotService) assembleContextWindow(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	ownerEmail string,
	chatSession *entity.ChatSession,
	prompt string,
) ([]*chatbot.ChatHistory, error) {
	recent, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: chatSession.Id},
		specification.OwnedBy{Email: ownerEmail},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: cs.cfg.ContextWindowSize},
	)
	if err != nil {
		return nil, err
	}

	history := make([]*chatbot.ChatHistory, 0, len(recent)+1)
	for i := len(recent) - 1; i >= 0; i-- {
		role := chatbot.ChatMessageRoleUser
		if recent[i].Role == entity.ChatMessageRoleAi {
			role = chatbot.ChatMessageRoleModel
		}
		history = append(history, &chatbot.ChatHistory{
			Chat: recent[i].Message,
			Role: role,
		})
	}
	history = append(history, &chatbot.ChatHistory{
		Chat: prompt,
		Role: chatbot.ChatMessageRoleUser,
	})
	return history, nil
}

// generateReply calls the completion provider and masks every failure behind
// the fixed fallback string.
func (cs *chatbotService) generateReply(ctx context.Context, sessionId uuid.UUID, history []*chatbot.ChatHistory) string {
	reply, err := cs.provider.GenerateReply(ctx, history)
	if err != nil {
		cs.sysLogger.Warn("chatbot", "completion call failed, using fallback reply", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return ChatFallbackReply
	}
	if strings.TrimSpace(reply) == "" {
		return ChatFallbackReply
	}
	return reply
}

// sweepOwner is best-effort housekeeping: failures are logged, never
// propagated to the caller's request.
func (cs *chatbotService) sweepOwner(ctx context.Context, ownerEmail string) {
	if cs.cleanupService == nil {
		return
	}
	if err := cs.cleanupService.SweepOwner(ctx, ownerEmail); err != nil {
		cs.sysLogger.Warn("chatbot", "owner expiry sweep failed", map[string]interface{}{
			"owner": ownerEmail,
			"error": err.Error(),
		})
	}
}

func (cs *chatbotService) publishExchangeRecorded(ctx context.Context, sessionId uuid.UUID, ownerEmail string) {
	if cs.publisherService == nil {
		return
	}
	err := cs.publisherService.PublishExchangeRecorded(ctx, &dto.ChatExchangeRecordedMessage{
		ChatSessionId: sessionId,
		OwnerEmail:    ownerEmail,
	})
	if err != nil {
		cs.sysLogger.Warn("chatbot", "failed to publish exchange event", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

func (cs *chatbotService) publishLifecycleEvent(ctx context.Context, event events.Event) {
	if cs.natsPub == nil {
		return
	}
	publishCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := cs.natsPub.Publish(publishCtx, event); err != nil {
		cs.sysLogger.Warn("chatbot", "failed to publish lifecycle event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

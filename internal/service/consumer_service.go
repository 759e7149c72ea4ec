package service

import (
	"context"
	"encoding/json"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IConsumerService drains exchange-recorded messages and applies retention
// rules off the request path.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	sysLogger  logger.ILogger
	cfg        config.ChatConfig
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	sysLogger logger.ILogger,
	cfg config.ChatConfig,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		sysLogger:  sysLogger,
		cfg:        cfg,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: retention is re-applied on the next exchange of
// the same session, so redelivery buys nothing.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.ChatExchangeRecordedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.sysLogger.Error("consumer", "failed to decode exchange message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	if err := cs.trimSessionMessages(ctx, payload.ChatSessionId); err != nil {
		cs.sysLogger.Error("consumer", "failed to trim session messages", map[string]interface{}{
			"session_id": payload.ChatSessionId.String(),
			"error":      err.Error(),
		})
	}

	if err := cs.enforceSessionCap(ctx, payload.OwnerEmail); err != nil {
		cs.sysLogger.Error("consumer", "failed to enforce session cap", map[string]interface{}{
			"owner": payload.OwnerEmail,
			"error": err.Error(),
		})
	}
}

// trimSessionMessages drops the oldest messages of a session once it grows
// past the per-session cap.
func (cs *consumerService) trimSessionMessages(ctx context.Context, sessionId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	count, err := uow.ChatMessageRepository().Count(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
	)
	if err != nil {
		return err
	}

	excess := count - int64(cs.cfg.MaxMessagesPerSession)
	if excess <= 0 {
		return nil
	}

	oldest, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
		specification.Pagination{Limit: int(excess)},
	)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(oldest))
	for _, m := range oldest {
		ids = append(ids, m.Id)
	}

	deleted, err := uow.ChatMessageRepository().DeleteAll(ctx,
		specification.ByIDs{IDs: ids},
	)
	if err != nil {
		return err
	}

	if err := uow.ChatSessionRepository().AdjustMessageCount(ctx, sessionId, -int(deleted)); err != nil {
		return err
	}

	cs.sysLogger.Info("consumer", "trimmed session messages", map[string]interface{}{
		"session_id": sessionId.String(),
		"deleted":    deleted,
	})
	return nil
}

// enforceSessionCap deletes the owner's least recently used sessions beyond
// the quota. Normally a no-op since new sessions past the quota are rejected
// up front; this covers quota changes and historical data.
func (cs *consumerService) enforceSessionCap(ctx context.Context, ownerEmail string) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	count, err := uow.ChatSessionRepository().Count(ctx,
		specification.OwnedBy{Email: ownerEmail},
	)
	if err != nil {
		return err
	}

	excess := count - int64(cs.cfg.MaxSessionsPerUser)
	if excess <= 0 {
		return nil
	}

	stale, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.OwnedBy{Email: ownerEmail},
		specification.OrderBy{Field: "updated_at", Desc: false},
		specification.Pagination{Limit: int(excess)},
	)
	if err != nil {
		return err
	}

	for _, sess := range stale {
		if err := uow.ChatSessionRepository().Delete(ctx, sess.Id); err != nil {
			return err
		}
		if _, err := uow.ChatMessageRepository().DeleteAll(ctx,
			specification.ByChatSessionID{ChatSessionID: sess.Id},
		); err != nil {
			return err
		}
	}

	cs.sysLogger.Info("consumer", "evicted sessions over quota", map[string]interface{}{
		"owner":   ownerEmail,
		"evicted": excess,
	})
	return nil
}

package service

import (
	"context"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/redis/go-redis/v9"
)

const (
	sweepLockKey = "chat:sweep:lock"
	sweepLockTTL = 5 * time.Minute
)

// ICleanupService removes chat data past its retention window. SweepOwner
// runs opportunistically on request paths, SweepAll is the global job.
type ICleanupService interface {
	SweepOwner(ctx context.Context, ownerEmail string) error
	SweepAll(ctx context.Context) (*dto.CleanupResult, error)
}

type cleanupService struct {
	uowFactory  unitofwork.RepositoryFactory
	throttle    *memory.SweepThrottle
	redisClient *redis.Client
	sysLogger   logger.ILogger
	expiryDays  int
}

// NewCleanupService builds the retention sweeper. throttle and redisClient
// may be nil: without a throttle every SweepOwner call sweeps, without redis
// SweepAll runs unguarded (single-instance deployments).
func NewCleanupService(
	uowFactory unitofwork.RepositoryFactory,
	throttle *memory.SweepThrottle,
	redisClient *redis.Client,
	sysLogger logger.ILogger,
	expiryDays int,
) ICleanupService {
	return &cleanupService{
		uowFactory:  uowFactory,
		throttle:    throttle,
		redisClient: redisClient,
		sysLogger:   sysLogger,
		expiryDays:  expiryDays,
	}
}

// SweepOwner deletes the owner's expired sessions and stale messages. Skipped
// when the owner was already swept within the throttle interval.
func (cs *cleanupService) SweepOwner(ctx context.Context, ownerEmail string) error {
	if cs.throttle != nil && !cs.throttle.TryAcquire(ownerEmail) {
		return nil
	}

	result, err := cs.sweep(ctx, specification.OwnedBy{Email: ownerEmail})
	if err != nil {
		// let the next request retry instead of waiting out the interval
		if cs.throttle != nil {
			cs.throttle.Reset(ownerEmail)
		}
		return err
	}

	if result.SessionsDeleted > 0 || result.MessagesDeleted > 0 {
		cs.sysLogger.Info("cleanup", "owner sweep removed expired chat data", map[string]interface{}{
			"owner":            ownerEmail,
			"sessions_deleted": result.SessionsDeleted,
			"messages_deleted": result.MessagesDeleted,
		})
	}
	return nil
}

// SweepAll deletes expired data across all owners. A redis lock keeps
// concurrent instances from sweeping at the same time; losing the lock race
// is not an error, the holder does the work.
func (cs *cleanupService) SweepAll(ctx context.Context) (*dto.CleanupResult, error) {
	if cs.redisClient != nil {
		acquired, err := cs.redisClient.SetNX(ctx, sweepLockKey, time.Now().Format(time.RFC3339), sweepLockTTL).Result()
		if err != nil {
			cs.sysLogger.Warn("cleanup", "sweep lock unavailable, proceeding unguarded", map[string]interface{}{
				"error": err.Error(),
			})
		} else if !acquired {
			cs.sysLogger.Info("cleanup", "sweep already running elsewhere, skipping", nil)
			return &dto.CleanupResult{}, nil
		} else {
			defer cs.redisClient.Del(context.WithoutCancel(ctx), sweepLockKey)
		}
	}

	result, err := cs.sweep(ctx)
	if err != nil {
		return nil, err
	}

	cs.sysLogger.Info("cleanup", "global sweep finished", map[string]interface{}{
		"sessions_deleted": result.SessionsDeleted,
		"messages_deleted": result.MessagesDeleted,
	})
	return result, nil
}

// sweep deletes messages older than the retention cutoff, then sessions idle
// past the same cutoff. Message deletion runs first so a crash between the
// two leaves only sessions, which the next sweep removes.
func (cs *cleanupService) sweep(ctx context.Context, scope ...specification.Specification) (*dto.CleanupResult, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	cutoff := time.Now().AddDate(0, 0, -cs.expiryDays)

	messageSpecs := append([]specification.Specification{specification.CreatedBefore{Cutoff: cutoff}}, scope...)
	messagesDeleted, err := uow.ChatMessageRepository().DeleteAll(ctx, messageSpecs...)
	if err != nil {
		return nil, err
	}

	sessionSpecs := append([]specification.Specification{specification.UpdatedBefore{Cutoff: cutoff}}, scope...)
	sessionsDeleted, err := uow.ChatSessionRepository().DeleteAll(ctx, sessionSpecs...)
	if err != nil {
		return nil, err
	}

	return &dto.CleanupResult{
		SessionsDeleted: sessionsDeleted,
		MessagesDeleted: messagesDeleted,
	}, nil
}

package bootstrap

import (
	"context"
	"log"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/controller"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/chatbot"

	pktNats "ai-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService
	CleanupService  service.ICleanupService

	NatsPublisher *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// 3. Services
	geminiClient := chatbot.NewGeminiClient(cfg.Keys.GoogleGemini, cfg.Chat.GeminiModel)
	log.Printf("[INFO] Using completion model: %s", cfg.Chat.GeminiModel)

	sweepThrottle := memory.NewSweepThrottle(cfg.Chat.SweepThrottle)

	cleanupService := service.NewCleanupService(
		uowFactory,
		sweepThrottle,
		rdb,
		sysLogger,
		cfg.Chat.ExpiryDays,
	)

	publisherService := service.NewPublisherService(pubSub, cfg.Chat.ExchangeTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Chat.ExchangeTopic,
		uowFactory,
		sysLogger,
		cfg.Chat,
	)

	chatbotService := service.NewChatbotService(
		uowFactory,
		geminiClient,
		cleanupService,
		publisherService,
		natsPub,
		sysLogger,
		cfg.Chat,
	)

	// 4. Controllers
	return &Container{
		ChatbotController: controller.NewChatbotController(chatbotService, cleanupService),

		ConsumerService: consumerService,
		CleanupService:  cleanupService,
		NatsPublisher:   natsPub,
	}
}

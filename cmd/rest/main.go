package main

import (
	"context"
	"log"
	"time"

	"ai-chat-be/internal/bootstrap"
	"ai-chat-be/internal/config"
	"ai-chat-be/internal/server"
	"ai-chat-be/internal/tracer"
	"ai-chat-be/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()
	if cfg.Keys.GoogleGemini == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)
	if container.NatsPublisher != nil {
		defer container.NatsPublisher.Close()
	}

	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	go runSweepLoop(container, cfg.Chat.SweepInterval)

	srv := server.New(cfg, container)

	log.Fatal(srv.Run())
}

// runSweepLoop periodically removes chat data past its retention window.
func runSweepLoop(container *bootstrap.Container, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := container.CleanupService.SweepAll(context.Background()); err != nil {
			log.Printf("Background Sweep Error: %v", err)
		}
	}
}

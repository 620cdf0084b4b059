package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pingme/internal/app/outbox"
	chatsvc "pingme/internal/app/services/chat"
	identitysvc "pingme/internal/app/services/identity"
	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
	"pingme/internal/infra/broker/kafka"
	"pingme/internal/infra/config"
	mongodb "pingme/internal/infra/db/mongo"
	ginserver "pingme/internal/infra/http/gin"
	"pingme/internal/infra/obs"
	outboxworker "pingme/internal/infra/outbox"
	"pingme/internal/infra/security"
	"pingme/internal/infra/storage/memory"
	"pingme/internal/infra/storage/s3"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *outboxworker.Worker
	mongo    *mongodb.Client
	producer *kafka.Producer
	ready    func() error
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	var app application

	var (
		users         domainuser.Repository
		conversations domainconv.Repository
		messages      domainmsg.Repository
		seen          domainmsg.SeenStore
	)
	sessions := memory.NewSessionStore()

	if cfg.MongoURI != "" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return app, err
		}
		app.mongo = client
		users = mongodb.NewUserRepository(client.DB)
		conversations = mongodb.NewConversationRepository(client.DB)
		messages = mongodb.NewMessageRepository(client.DB)
		seen = mongodb.NewSeenStore(client.DB)
		logger.Info("mongo storage attached", "database", cfg.MongoDB)
	} else {
		users = memory.NewUserRepository()
		conversations = memory.NewConversationRepository()
		messages = memory.NewMessageRepository()
		seen = memory.NewSeenStore()
		logger.Info("in-memory storage attached")
	}

	var blobs s3.BlobStore
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, logger)
		if err != nil {
			return app, err
		}
		blobs = client
		logger.Info("s3 blob store attached", "bucket", cfg.S3Bucket)
	} else {
		blobs = s3.NewMemoryStore()
		logger.Info("in-memory blob store attached")
	}

	eventQueue := memory.NewOutbox()
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return app, err
		}
		app.producer = producer
		app.worker = &outboxworker.Worker{
			Queue:       eventQueue,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
		}
		logger.Info("kafka producer attached", "brokers", cfg.KafkaBrokers)
	}

	identity := &identitysvc.Service{
		Users:      users,
		Sessions:   sessions,
		Tokens:     security.RandomTokenGenerator{Size: 32},
		PublicIDs:  security.PublicIDGenerator{Length: domainuser.PublicIDLength},
		SessionTTL: cfg.SessionTTL,
		Outbox:     eventQueue,
		Encoder:    outbox.JSONEventEncoder{},
		Logger:     logger,
	}
	chat := &chatsvc.Service{
		Users:         users,
		Conversations: conversations,
		Messages:      messages,
		Seen:          seen,
		Outbox:        eventQueue,
		Encoder:       outbox.JSONEventEncoder{},
		Logger:        logger,
	}

	authHandler := ginserver.AuthHandler{Service: identity, Logger: logger}
	app.handlers = ginserver.Handlers{
		Auth: authHandler,
		User: authHandler,
		Chat: ginserver.ChatHandler{Service: chat, Logger: logger},
		Upload: ginserver.UploadHandler{
			Service:           chat,
			Blobs:             blobs,
			MaxBytes:          cfg.UploadMaxBytes,
			AllowedExtensions: cfg.AllowedExtensions,
			Logger:            logger,
		},
		AuthMiddleware: ginserver.AuthMiddleware{Service: identity, Logger: logger}.Handle,
	}

	app.ready = func() error {
		if app.mongo != nil {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return app.mongo.Ping(pingCtx)
		}
		return nil
	}
	return app, nil
}

func (a application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
	if a.mongo != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Close(closeCtx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

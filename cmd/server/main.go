package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tablereach/rengage-backend/internal/config"
	"github.com/tablereach/rengage-backend/internal/db"
	"github.com/tablereach/rengage-backend/internal/dispatch"
	"github.com/tablereach/rengage-backend/internal/handler"
	"github.com/tablereach/rengage-backend/internal/idempotency"
	"github.com/tablereach/rengage-backend/internal/logger"
	"github.com/tablereach/rengage-backend/internal/queue"
	"github.com/tablereach/rengage-backend/internal/repository"
	"github.com/tablereach/rengage-backend/internal/service"
	"github.com/tablereach/rengage-backend/internal/textgen"
	"github.com/tablereach/rengage-backend/internal/transport"
)

func main() {
	// Missing .env is fine: containers get config from the real environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Environment, "campaign-server")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var store repository.CampaignStore
	if cfg.DBHost != "" {
		conn, err := db.Connect(cfg.DSN())
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer conn.Close()
		store = &repository.PostgresCampaignStore{DB: conn}
		log.Info("connected to database", zap.String("host", cfg.DBHost))
	} else {
		store = repository.NewMemoryCampaignStore()
		log.Warn("no database configured, campaign records are in-memory only")
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := queue.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueueName)
		if err != nil {
			log.Fatal("failed to connect to broker", zap.Error(err))
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		log.Info("publishing campaign events", zap.String("queue", cfg.EventsQueueName))
	}

	var idemStore idempotency.Store
	if cfg.RedisAddr != "" {
		idemStore = idempotency.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
	} else {
		idemStore = idempotency.NewMemoryStore()
	}

	var sender transport.Transport
	if cfg.TwilioAccountSID != "" {
		sender = transport.NewTwilioTransport(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		log.Info("using twilio transport")
	} else {
		sender = transport.NewMockTransport()
		log.Warn("no carrier configured, using mock transport")
	}

	campaignService := &service.CampaignService{
		Store:             store,
		Dispatcher:        dispatch.New(sender, cfg.DispatchWorkers, cfg.SendTimeout, log),
		Idempotency:       idemStore,
		Publisher:         publisher,
		Generator:         textgen.StaticGenerator{},
		Log:               log,
		ThresholdDays:     cfg.ThresholdDays,
		PerMessageCost:    cfg.PerMessageCost,
		IdempotencyWindow: cfg.IdempotencyWindow,
		PreviewSampleSize: cfg.PreviewSampleSize,
	}

	campaignHandler := handler.NewCampaignHandler(campaignService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Group(campaignHandler.Routes)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("server running", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/tablereach/rengage-backend/internal/config"
	"github.com/tablereach/rengage-backend/internal/db"
	"github.com/tablereach/rengage-backend/internal/logger"
	"github.com/tablereach/rengage-backend/internal/queue"
	"github.com/tablereach/rengage-backend/internal/repository"
)

// The worker consumes campaign delivery events off the broker and archives
// them into the campaign_events audit table.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Environment, "events-worker")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the events worker")
	}
	if cfg.DBHost == "" {
		log.Fatal("DB_HOST is required for the events worker")
	}

	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	eventRepo := &repository.EventRepository{DB: conn}

	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer amqpConn.Close()

	ch, err := amqpConn.Channel()
	if err != nil {
		log.Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.EventsQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatal("failed to declare queue", zap.Error(err))
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("failed to register consumer", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for d := range deliveries {
			archive(ctx, eventRepo, d, log)
		}
	}()

	log.Info("events worker running", zap.String("queue", q.Name))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("events worker shutting down")
}

func archive(ctx context.Context, repo *repository.EventRepository, d amqp.Delivery, log *zap.Logger) {
	var event queue.Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Warn("discarding malformed event", zap.Error(err))
		d.Nack(false, false)
		return
	}

	if err := repo.Archive(ctx, event.Type, event.CampaignID, d.Body); err != nil {
		log.Error("failed to archive event",
			zap.String("type", event.Type),
			zap.String("campaign_id", event.CampaignID),
			zap.Error(err))
		d.Nack(false, true) // requeue
		return
	}

	d.Ack(false)
}

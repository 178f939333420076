package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/food-rescue/listing-service/config"
	"github.com/Eursukkul/food-rescue/listing-service/internal/auth"
	"github.com/Eursukkul/food-rescue/listing-service/internal/consumer"
	"github.com/Eursukkul/food-rescue/listing-service/internal/events"
	"github.com/Eursukkul/food-rescue/listing-service/internal/handler"
	"github.com/Eursukkul/food-rescue/listing-service/internal/middleware"
	"github.com/Eursukkul/food-rescue/listing-service/internal/repository"
	"github.com/Eursukkul/food-rescue/listing-service/internal/service"
	"github.com/Eursukkul/food-rescue/listing-service/internal/worker"
	"github.com/Eursukkul/food-rescue/listing-service/pkg/database"
	"github.com/Eursukkul/food-rescue/listing-service/pkg/kafka"
	"github.com/Eursukkul/food-rescue/listing-service/pkg/logger"
	"github.com/Eursukkul/food-rescue/listing-service/pkg/rabbitmq"
	"github.com/Eursukkul/food-rescue/listing-service/pkg/redislock"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const auditQueue = "listing-service.audit"

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if cfg.InsecureSecret() {
		log.Warn("JWT_SECRET is not set, signing tokens with the built-in development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}

	// Repositories
	listingRepo := repository.NewListingRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	eventRepo := repository.NewListingEventRepository(db)

	// Event bus + audit consumer
	auditConsumer := consumer.NewListingEventConsumer(eventRepo, log)
	bus, closeBus, err := startEventBus(ctx, cfg, auditConsumer, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start event bus")
	}

	// Services
	opts := []service.Option{service.WithLogger(log)}
	if bus != nil {
		opts = append(opts, service.WithPublisher(events.NewEmitter(bus, cfg.ServiceName)))
	}
	listingSvc := service.NewListingService(listingRepo, accountRepo, opts...)
	accountSvc := service.NewAccountService(accountRepo, log)
	auditSvc := service.NewAuditService(eventRepo)

	// Expiry sweep, optionally guarded by a redis lock
	var sweeperOpts []worker.SweeperOption
	if cfg.RedisAddr != "" {
		rdb := redislock.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, sweeping without a lock")
		} else {
			sweeperOpts = append(sweeperOpts, worker.WithLock(redislock.New(rdb), redislock.KeySweep))
		}
		cancel()
	}
	sweeper := worker.NewSweeper(listingSvc.Sweep, cfg.SweepInterval, log, sweeperOpts...)
	sweeper.Start(ctx)

	// Echo
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.ServiceName, cfg.TokenTTL)
	requireAuth := middleware.RequireAuth(tokens)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMw.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.CORS(cfg.CORSOrigins))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": cfg.ServiceName})
	})

	api := e.Group("/api/v1")
	api.Use(echoMw.RateLimiter(echoMw.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	handler.NewAccountHandler(accountSvc, tokens).RegisterRoutes(api, requireAuth)
	handler.NewListingHandler(listingSvc, auditSvc).RegisterRoutes(api, requireAuth)

	go func() {
		log.WithField("port", cfg.ServerPort).Infof("%s starting", cfg.ServiceName)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	sweeper.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	closeBus()
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		return database.NewPostgresDB(cfg.DSN())
	case "sqlite":
		return database.NewSQLiteDB(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// startEventBus connects the configured broker, starts the audit consumer on
// it and returns the bus lifecycle events are published to. The returned
// func releases the broker connections.
func startEventBus(ctx context.Context, cfg config.Config, audit *consumer.ListingEventConsumer, log logrus.FieldLogger) (events.Bus, func(), error) {
	switch cfg.EventBus {
	case "rabbitmq":
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, log)
		if err != nil {
			return nil, nil, err
		}
		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, auditQueue, events.RoutingPattern)
		if err != nil {
			publisher.Close()
			return nil, nil, err
		}
		msgs, err := mqConsumer.Consume()
		if err != nil {
			mqConsumer.Close()
			publisher.Close()
			return nil, nil, err
		}
		audit.Start(ctx, msgs)

		return publisher, func() {
			mqConsumer.Close()
			publisher.Close()
		}, nil

	case "kafka":
		producerCtx, stopProducer := context.WithCancel(context.Background())
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024, log)
		producer.Start(producerCtx)

		kafkaConsumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, cfg.KafkaTopic, 4, log)
		go func() {
			if err := kafkaConsumer.Start(ctx, audit.HandleKafka); err != nil {
				log.WithError(err).Error("kafka consumer stopped")
			}
		}()

		return producer, func() {
			stopProducer()
			producer.WaitClosed()
		}, nil

	case "none", "":
		log.Warn("EVENT_BUS=none, lifecycle events are not published")
		return nil, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown EVENT_BUS %q", cfg.EventBus)
	}
}

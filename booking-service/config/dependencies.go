package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/roomly/booking-system/booking-service/application"
	"github.com/roomly/booking-system/booking-service/handlers"
	"github.com/roomly/booking-system/booking-service/infrastructure"
	sharedinfra "github.com/roomly/booking-system/shared/infrastructure"
	"github.com/roomly/booking-system/shared/tasks"
	"github.com/roomly/booking-system/shared/telemetry"
	"go.uber.org/zap"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Logging
	Logger *zap.Logger

	// Repositories
	BookingRepository *infrastructure.PostgresBookingRepository

	// Task queue
	Registry    *tasks.Registry
	Worker      *tasks.Worker
	TaskQueue   tasks.Queue
	SQSQueue    *sharedinfra.SQSTaskQueue
	MemoryQueue *tasks.MemoryQueue

	// Use Cases
	CreateBooking    *application.CreateBooking
	GetBooking       *application.GetBooking
	StartBookingSaga *application.StartBookingSaga
	ProcessPayment   *application.ProcessPayment
	SendConfirmation *application.SendConfirmation
	CancelBooking    *application.CancelBooking
	ReconcilePending *application.ReconcilePending

	// HTTP Handlers
	BookingHandlers *handlers.BookingHandlers

	// Task Handlers
	BookingTaskHandlers *handlers.BookingTaskHandlers

	// Infrastructure
	EventPublisher *sharedinfra.SNSEventPublisher
	PaymentGateway *infrastructure.SimulatedPaymentGateway

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	logger, err := buildLogger(config.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	deps.Logger = logger

	// Initialize telemetry first
	if config.Telemetry.OTLPEndpoint != "" {
		tel, telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    config.ServiceName,
			ServiceVersion: "1.0.0",
			OTLPEndpoint:   config.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			// Continue without telemetry rather than failing
			logger.Warn("failed to initialize telemetry", zap.Error(err))
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	// Initialize database
	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	deps.DB = db

	// Initialize AWS infrastructure
	eventPublisher, err := sharedinfra.NewSNSEventPublisherFromEnv(ctx, config.AWS.SNSTopicArn)
	if err != nil {
		return nil, fmt.Errorf("failed to create SNS publisher: %w", err)
	}
	deps.EventPublisher = eventPublisher

	switch config.Broker {
	case "memory":
		deps.MemoryQueue = tasks.NewMemoryQueue(0)
		deps.TaskQueue = deps.MemoryQueue
	default:
		sqsQueue, err := sharedinfra.NewSQSTaskQueueFromEnv(ctx, config.AWS.SQSQueueURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQS task queue: %w", err)
		}
		deps.SQSQueue = sqsQueue
		deps.TaskQueue = sqsQueue
	}

	// Initialize repositories and gateways
	deps.BookingRepository = infrastructure.NewPostgresBookingRepository(db)
	deps.PaymentGateway = infrastructure.NewSimulatedPaymentGateway()

	// Initialize use cases
	deps.StartBookingSaga = application.NewStartBookingSaga(deps.TaskQueue, logger)
	deps.CreateBooking = application.NewCreateBooking(deps.BookingRepository, eventPublisher, deps.StartBookingSaga, logger)
	deps.GetBooking = application.NewGetBooking(deps.BookingRepository)
	deps.ProcessPayment = application.NewProcessPayment(deps.BookingRepository, deps.PaymentGateway, eventPublisher, logger)
	deps.SendConfirmation = application.NewSendConfirmation(deps.BookingRepository, eventPublisher, logger)
	deps.CancelBooking = application.NewCancelBooking(deps.BookingRepository, eventPublisher, logger)
	deps.ReconcilePending = application.NewReconcilePending(deps.BookingRepository, deps.StartBookingSaga, logger)

	// Initialize handlers
	deps.BookingHandlers = handlers.NewBookingHandlers(deps.CreateBooking, deps.GetBooking, deps.ReconcilePending)
	deps.BookingTaskHandlers = handlers.NewBookingTaskHandlers(
		deps.ProcessPayment,
		deps.SendConfirmation,
		deps.CancelBooking,
		retryPolicy(config.Saga.PaymentMaxAttempts, config.Saga),
		retryPolicy(config.Saga.ConfirmationMaxAttempts, config.Saga),
	)

	// Wire task handlers into the worker
	deps.Registry = tasks.NewRegistry()
	deps.BookingTaskHandlers.Register(deps.Registry)
	deps.Worker = tasks.NewWorker(deps.Registry, deps.TaskQueue, logger)

	return deps, nil
}

func retryPolicy(attempts uint, saga Saga) tasks.RetryPolicy {
	return tasks.RetryPolicy{
		Attempts:  attempts,
		BaseDelay: time.Duration(saga.RetryBaseDelayMS) * time.Millisecond,
		MaxDelay:  time.Duration(saga.RetryMaxDelayMS) * time.Millisecond,
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.SQSQueue != nil {
		if err := d.SQSQueue.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop task queue: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}

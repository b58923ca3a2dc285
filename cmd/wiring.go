package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-engine/internal/batch"
	"loan-engine/internal/config"
	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/database/memory"
	"loan-engine/internal/infrastructure/database/postgres"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const (
	rabbitMQAttempts = 5
	rabbitMQBackoff  = 2 * time.Second
)

type storage struct {
	customers customer.CustomerRepository
	loans     loan.Repository
	close     func()
}

func initializeStorage(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		customers := memory.NewCustomerRepository()
		return &storage{
			customers: customers,
			loans:     memory.NewLoanRepository(customers),
			close:     func() {},
		}, nil

	case config.DriverPostgres, "":
		logger.Info("Initializing database connection pool...")
		pool, err := postgres.NewConnectionPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &storage{
			customers: postgres.NewCustomerRepository(pool, logger),
			loans:     postgres.NewLoanRepository(pool, logger),
			close: func() {
				logger.Info("Closing database connection pool...")
				pool.Close()
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// lendingPolicies maps configuration onto the domain policies. Unset numeric
// values keep their defaults.
func lendingPolicies(cfg config.LendingConfig) (customer.LimitPolicy, loan.Policy) {
	limit := customer.DefaultLimitPolicy()
	if cfg.ApprovedLimitMultiplier > 0 {
		limit.Multiplier = cfg.ApprovedLimitMultiplier
	}
	if cfg.ApprovedLimitRounding > 0 {
		limit.Rounding = cfg.ApprovedLimitRounding
	}

	policy := loan.DefaultPolicy()
	if cfg.AffordabilityRatio > 0 {
		policy.AffordabilityRatio = cfg.AffordabilityRatio
	}
	if cfg.MaxTenureMonths > 0 {
		policy.MaxTenureMonths = cfg.MaxTenureMonths
	}
	if cfg.MaxInterestRate > 0 {
		policy.MaxInterestRate = cfg.MaxInterestRate
	}
	if cfg.MaxLoanAmount > 0 {
		policy.MaxLoanAmount = cfg.MaxLoanAmount
	}
	policy.IncludeExistingInstallments = cfg.IncludeExistingInstallments
	policy.CreditScoring = cfg.CreditScoring

	return limit, policy
}

// seedStorage imports the configured workbooks into empty storage. A failed
// import is logged and startup continues.
func seedStorage(ctx context.Context, cfg config.SeedConfig, store *storage, limits customer.LimitPolicy, logger *slog.Logger) *batch.SeedResult {
	if !cfg.Enabled {
		return nil
	}
	logger.Info("Importing seed data...", "customers_file", cfg.CustomersFile, "loans_file", cfg.LoansFile)
	importer := batch.NewSeedImporter(store.customers, store.loans, limits, logger)
	result, err := importer.ImportFiles(ctx, batch.SeedFiles{Customers: cfg.CustomersFile, Loans: cfg.LoansFile})
	if err != nil {
		logger.Error("Seed import failed", "error", err)
		return nil
	}
	return result
}

func initializeServices(store *storage, publisher event.EventPublisher, cfg config.LendingConfig, logger *slog.Logger) (customer.CustomerService, loan.LoanService) {
	logger.Info("Initializing application components...")
	limitPolicy, loanPolicy := lendingPolicies(cfg)

	customerService := customer.NewCustomerService(store.customers, publisher, limitPolicy, logger)
	loanService := loan.NewLoanService(store.loans, customerService, publisher, loanPolicy, logger)
	return customerService, loanService
}

func rabbitMQURI(cfg config.RabbitMQConfig) string {
	uri := amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		Vhost:    "/",
	}
	if uri.Port == 0 {
		uri.Port = 5672
	}
	return uri.String()
}

// setupRabbitMQ returns a nil connection without error when RabbitMQ is disabled.
func setupRabbitMQ(cfg config.RabbitMQConfig, attempts int, backoff time.Duration, logger *slog.Logger) (*amqp.Connection, error) {
	if !cfg.Enabled {
		logger.Info("RabbitMQ disabled via configuration")
		return nil, nil
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("RabbitMQ host is not configured")
	}
	if (cfg.Username == "") != (cfg.Password == "") {
		return nil, fmt.Errorf("RabbitMQ username and password must be provided together")
	}
	return connectRabbitMQ(rabbitMQURI(cfg), attempts, backoff, logger)
}

func connectRabbitMQ(uri string, attempts int, backoff time.Duration, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 1; i <= attempts; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")
			go watchRabbitMQ(conn, logger)
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
		if i < attempts {
			time.Sleep(time.Duration(i) * backoff)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
}

func watchRabbitMQ(conn *amqp.Connection, logger *slog.Logger) {
	blockChan := conn.NotifyBlocked(make(chan amqp.Blocking, 1))
	closeChan := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case b, ok := <-blockChan:
			if !ok {
				return
			}
			logger.Warn("RabbitMQ connection blocked", "active", b.Active, "reason", b.Reason)
		case e, ok := <-closeChan:
			if ok && e != nil {
				logger.Error("RabbitMQ connection closed", slog.Any("error", e))
			}
			return
		}
	}
}

func initializePublisher(conn *amqp.Connection, cfg config.RabbitMQConfig, logger *slog.Logger) event.EventPublisher {
	if conn == nil {
		return event.NewLogEventPublisher(logger)
	}
	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.ExchangeName, logger)
	if err != nil {
		logger.Warn("Failed to set up RabbitMQ publisher; domain events will only be logged", "error", err)
		return event.NewLogEventPublisher(logger)
	}
	return publisher
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	switch {
	case rabbitConn == nil:
		logger.Info("RabbitMQ connection was not established, skipping close.")
	case rabbitConn.IsClosed():
		logger.Info("RabbitMQ connection already closed, skipping close.")
	default:
		logger.Info("Closing RabbitMQ connection...")
		if err := rabbitConn.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
		}
	}
}

// initializeRedisClient only connects when the redis rate-limit backend is
// selected. A failed ping yields nil and the limiter stays in process.
func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	rl := cfg.Server.RateLimit
	if !rl.Enabled || rl.Backend != config.RateLimitBackendRedis {
		return nil
	}
	if cfg.Redis.Addr == "" {
		logger.Warn("Redis rate limiting selected but redis.addr is empty")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Failed to connect to Redis", "error", err, "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		return nil
	}

	logger.Info("Redis client connected", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		return
	}
	logger.Info("Closing Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis client connection gracefully", "error", err)
	}
}

func startBatchJobs(cfg config.BatchConfig, debtJob batch.Job, logger *slog.Logger) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	timeout := cfg.DebtRefreshTimeout * time.Second
	if _, err := batch.Schedule(c, "DebtRefresh", cfg.DebtRefreshSchedule, timeout, debtJob, logger); err != nil {
		logger.Error("Failed to schedule current debt refresh job", slog.Any("error", err))
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

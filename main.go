package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/cache"
	"socialhub/infrastructure/clients"
	"socialhub/infrastructure/configuration"
	"socialhub/infrastructure/logger"
	"socialhub/infrastructure/persistence"
	"socialhub/infrastructure/pubsub"
	"socialhub/infrastructure/ratelimit"
	"socialhub/infrastructure/servicebus"
	httpHandler "socialhub/interfaces/http"
	"socialhub/server"
	"socialhub/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	cipher, err := persistence.NewTokenCipher(app.SecretKey)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Token cipher initialization failed; cannot store credentials")
		os.Exit(1)
	}

	accountDb, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	var stateStore repository.IStateStore
	var limiterFor clients.LimiterFor
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - using in-process state store and limiter (single node only)")
		stateStore = cache.NewMemoryStateStore()
		memoryLimiters := ratelimit.SharedMemoryLimiters()
		limiterFor = func(p model.Platform) repository.IRateLimiter {
			return memoryLimiters(p)
		}
	} else {
		logger.GetLogger().Info("Redis client initialized successfully.")
		stateStore = cache.NewRedisStateStore(redisClient, "")
		limiterFor = func(p model.Platform) repository.IRateLimiter {
			return ratelimit.NewRedisLimiter(redisClient, ratelimit.QuotaFor(p), ratelimit.Window)
		}
	}

	mongoDb, err := persistence.NewMongoDb()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without audit persistence")
		mongoDb = nil
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without audit persistence")
		mongoDb = nil
	} else {
		logger.GetLogger().Info("MongoDB connected successfully")
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PubSub not available - tenant notifications will be logged only")
		pubSubClient = nil
	}

	azServiceBusClient, err := servicebus.NewClient(configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - audit forwarding disabled")
		azServiceBusClient = nil
	}

	// Repository wiring: use MSSQL in production, otherwise PostgreSQL.
	var accountRepository repository.ISocialAccount
	if usingMSSQL() {
		if err := persistence.EnsureSocialAccountSchemaMSSQL(accountDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring social account schema (mssql)")
		}
		accountRepository = persistence.NewSocialAccountRepositoryMSSQL(accountDb, cipher)
	} else {
		if err := persistence.EnsureSocialAccountSchema(accountDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring social account schema")
		}
		accountRepository = persistence.NewSocialAccountRepository(accountDb, cipher)
	}

	// Integration rows live in MySQL; optional, the resolver falls back to
	// static configuration when absent.
	var integrationRepository repository.IPlatformIntegration
	if gormDb, err := persistence.NewMySQLGorm(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MySQL not available - platform integrations come from static configuration only")
	} else if repo, err := persistence.NewPlatformIntegrationRepository(gormDb); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Platform integration migration failed - using static configuration only")
	} else {
		integrationRepository = repo
	}

	auditSink := usecase.NewAuditFanout(
		persistence.NewAuditRepository(mongoDb, configuration.C.Mongo.Name),
		servicebus.NewAuditBus(azServiceBusClient, configuration.C.ServiceBus.Queue),
	)
	notifier := pubsub.NewTenantNotifier(pubSubClient, configuration.C.Pubsub.Topic)

	resolver := usecase.NewCredentialResolver(integrationRepository)
	oauthUsecase := usecase.NewOAuthUsecase(resolver, stateStore)
	accountUsecase := usecase.NewSocialAccountUsecase(accountRepository, oauthUsecase, auditSink)
	forceReauthUsecase := usecase.NewForceReauthUsecase(accountRepository, notifier, auditSink)

	clientFactory := clients.NewFactory(limiterFor, configuration.C.OAuth.Facebook.APIVersion)
	publishUsecase := usecase.NewPublishUsecase(accountRepository, oauthUsecase, accountUsecase, clientFactory)

	oauthHandler := httpHandler.NewOAuthHandler(oauthUsecase)
	accountHandler := httpHandler.NewSocialAccountHandler(accountUsecase)
	publishHandler := httpHandler.NewPublishHandler(publishUsecase)
	adminHandler := httpHandler.NewAdminHandler(forceReauthUsecase)

	router := server.InitiateRouter(app.SecretKey, oauthHandler, accountHandler, publishHandler, adminHandler)

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase picks the social-account store: MSSQL in production or
// when DB_VENDOR=mssql, PostgreSQL otherwise.
func InitiateDatabase() (*sql.DB, error) {
	if usingMSSQL() {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, err
		}
		return db, nil
	}
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, err
	}
	return db, nil
}

func usingMSSQL() bool {
	if os.Getenv("DB_VENDOR") == "mssql" {
		return true
	}
	env := os.Getenv("ENV")
	return env == "production" || env == "prod"
}

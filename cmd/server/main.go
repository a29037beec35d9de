package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/cloudbill/backend/internal/application/billing"
	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/cloudbill/backend/internal/infrastructure/cache"
	"github.com/cloudbill/backend/internal/infrastructure/config"
	"github.com/cloudbill/backend/internal/infrastructure/event"
	"github.com/cloudbill/backend/internal/infrastructure/logger"
	"github.com/cloudbill/backend/internal/infrastructure/persistence"
	"github.com/cloudbill/backend/internal/infrastructure/scheduler"
	"github.com/cloudbill/backend/internal/interfaces/http/handler"
	"github.com/cloudbill/backend/internal/interfaces/http/middleware"
	"github.com/cloudbill/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Scope kinds served by this deployment. Each kind is bound to its
// registrator at startup; the engine itself never enumerates them.
const (
	scopeKindResource = billing.ScopeKind("resource")
	scopeKindMetered  = billing.ScopeKind("metered")
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	invoiceRepo := persistence.NewInvoiceRepository(db.DB)
	creditRepo := persistence.NewCreditRepository(db.DB)
	usageRepo := persistence.NewComponentUsageRepository(db.DB)
	planRepo := persistence.NewPlanRepository(db.DB)
	resourceRepo := persistence.NewResourceRepository(db.DB)
	profileRepo := persistence.NewPaymentProfileRepository(db.DB)

	// Initialize application services
	issuer := billing.IssuerDetails{
		Name:    cfg.Billing.IssuerName,
		Email:   cfg.Billing.IssuerEmail,
		Address: cfg.Billing.IssuerAddress,
	}
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, profileRepo, issuer, log)
	creditService := billingapp.NewCreditService(creditRepo, log)
	invoiceService.SetCompensator(creditService)

	registry := billingapp.NewRegistratorRegistry(
		billingapp.NewSubscriptionRegistrator(scopeKindResource, resourceRepo, planRepo, log),
		billingapp.NewUsageRegistrator(scopeKindMetered, resourceRepo, log),
	)
	registrationService := billingapp.NewRegistrationService(registry, invoiceService, invoiceRepo, resourceRepo, log)
	invoiceService.SetSourceRegistrar(registrationService)

	usageService := billingapp.NewUsageService(usageRepo, invoiceRepo, resourceRepo, planRepo, invoiceService, log)
	transferService := billingapp.NewTransferService(invoiceService, invoiceRepo, resourceRepo, creditRepo, log)
	lifecycleService := billingapp.NewLifecycleService(registrationService, usageService, transferService, resourceRepo, log)
	profileService := billingapp.NewPaymentProfileService(profileRepo, log)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Idempotency store for event delivery: Redis when configured, an
	// in-process store otherwise.
	var idempotencyStore shared.IdempotencyStore
	if cfg.Redis.Host != "" {
		redisStore, err := cache.NewRedisIdempotencyStore(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		idempotencyStore = redisStore
		log.Info("Redis idempotency store connected",
			zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
	} else {
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
		log.Info("Using in-memory idempotency store")
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Register event handlers
	notificationHandler := billingapp.NewInvoiceNotificationHandler(billingapp.NewLogNotifier(log), log)
	eventBus.Subscribe(event.NewIdempotentHandler(notificationHandler, idempotencyStore, log))

	auditHandler := billingapp.NewAuditLogHandler(log)
	eventBus.Subscribe(auditHandler)

	log.Info("Event handlers registered",
		zap.Strings("notification_events", notificationHandler.EventTypes()))

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject the bus into services that publish events
	invoiceService.SetEventPublisher(eventBus)
	creditService.SetEventPublisher(eventBus)

	// Periodic billing tasks
	billingTasks := billingapp.NewBillingTasks(
		invoiceService, creditService,
		invoiceRepo, profileRepo, resourceRepo,
		eventBus, log,
	)
	if cfg.Scheduler.Enabled {
		billingScheduler := scheduler.NewBillingScheduler(billingTasks, cfg.Scheduler, log)
		if err := billingScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start billing scheduler", zap.Error(err))
		}
		defer func() {
			if err := billingScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping billing scheduler", zap.Error(err))
			}
		}()
		log.Info("Billing scheduler started",
			zap.Duration("invoice_run_interval", cfg.Scheduler.InvoiceRunInterval),
			zap.Duration("credit_sweep", cfg.Scheduler.CreditSweep),
			zap.Duration("notify_interval", cfg.Scheduler.NotifyInterval),
		)
	}

	// Initialize HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	creditHandler := handler.NewCreditHandler(creditService)
	usageHandler := handler.NewUsageHandler(usageService)
	profileHandler := handler.NewPaymentProfileHandler(profileService)
	lifecycleHandler := handler.NewLifecycleHandler(lifecycleService)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(invoiceHandler).
		Register(creditHandler).
		Register(usageHandler).
		Register(profileHandler).
		Register(lifecycleHandler).
		Register(systemHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

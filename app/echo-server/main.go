package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpmetrics "farmDirect/app/echo-server/metrics"
	"farmDirect/app/echo-server/router"
	"farmDirect/business/category"
	"farmDirect/business/dashboard"
	"farmDirect/business/orders"
	"farmDirect/business/product"
	userService "farmDirect/business/user"
	"farmDirect/internal/middleware"
	"farmDirect/internal/outbox"
	"farmDirect/internal/repository/kafka"
	"farmDirect/internal/repository/notification"
	"farmDirect/internal/repository/pesapal"
	psqlRepo "farmDirect/internal/repository/postgres"
	redisRepo "farmDirect/internal/repository/redis"
	"farmDirect/internal/rest"
	"farmDirect/pkg/config"
	"farmDirect/pkg/database"
	redisClient "farmDirect/pkg/database/redis"
	"farmDirect/pkg/logger"
	"farmDirect/pkg/metrics"
	"farmDirect/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting FarmDirect", "version", cfg.App.Version, "env", cfg.App.Environment)

	metrics.Init()
	httpmetrics.Init()

	if cfg.Database.MigrateOnBoot {
		if err := database.Migrate(cfg, true); err != nil {
			logger.Fatal("Failed to run migrations", err)
		}
		logger.Info("Database migrations applied")
	}

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer func() {
		if err := database.ClosePostgres(db); err != nil {
			logger.Error("Failed to close database", err)
		}
	}()

	logger.Info("Database connected successfully")

	rdb, err := redisClient.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", err)
	}
	defer func() {
		if err := redisClient.CloseRedisClient(rdb); err != nil {
			logger.Error("Failed to close redis", err)
		}
	}()

	// Init notification from mailjet
	mailjetEmail := notification.NewMailjetRepository(
		notification.MailjetConfig{
			MailjetBaseURL:           cfg.Mailjet.MailjetBaseUrl,
			MailjetBasicAuthUsername: cfg.Mailjet.MailjetBasicAuthUsername,
			MailjetBasicAuthPassword: cfg.Mailjet.MailjetBasicAuthPassword,
			MailjetSenderEmail:       cfg.Mailjet.MailjetSenderEmail,
			MailjetSenderName:        cfg.Mailjet.MailjetSenderName,
		},
	)

	pesapalRepo := pesapal.NewPesapalRepository(
		pesapal.PesapalConfig{
			BaseURL:        cfg.Pesapal.BaseURL,
			ConsumerKey:    cfg.Pesapal.ConsumerKey,
			ConsumerSecret: cfg.Pesapal.ConsumerSecret,
			CallbackURL:    cfg.Pesapal.CallbackURL,
			NotificationID: cfg.Pesapal.NotificationID,
			Currency:       cfg.Pesapal.Currency,
			Timeout:        cfg.Pesapal.Timeout,
		},
	)
	signatureVerifier := pesapal.NewSignatureVerifier(cfg.Pesapal.WebhookSecret)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderEventsTopic, logger.With("component", "kafka_producer"))
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("Failed to close kafka producer", err)
		}
	}()

	// Init validate
	validate := validator.New()
	jwt := utils.NewJWT(cfg.JWT.SecretKey, cfg.JWT.TTL)

	// Init repo
	userRepo := psqlRepo.NewUserRepository(db)
	ordersRepo := psqlRepo.NewOrdersRepository(db)
	productsRepo := psqlRepo.NewProductRepository(db)
	categoryRepo := psqlRepo.NewCategoryRepository(db)
	dashboardRepo := psqlRepo.NewDashboardRepository(db)
	outboxRepo := psqlRepo.NewOutboxRepository(db)
	sessionRepo := redisRepo.NewSessionRepository(rdb)
	idempotencyRepo := redisRepo.NewIdempotencyRepository(rdb)

	// Init service
	userService := userService.NewUserService(userRepo, sessionRepo, jwt, validate)
	ordersService := orders.NewOrdersService(ordersRepo, userRepo, pesapalRepo, idempotencyRepo, mailjetEmail)
	productService := product.NewProductService(productsRepo, userRepo, categoryRepo)
	categoryService := category.NewCategoryService(categoryRepo)
	dashboardService := dashboard.NewDashboardService(dashboardRepo)

	// Init handler
	timeout := cfg.Server.RequestTimeout
	userHandler := rest.NewUserHandler(userService, timeout)
	ordersHandler := rest.NewOrdersHandler(ordersService, timeout)
	webhookHandler := rest.NewWebhookController(ordersService, signatureVerifier, timeout)
	productHandler := rest.NewProductHandler(productService, timeout)
	categoryHandler := rest.NewCategoryHandler(categoryService, timeout)
	dashboardHandler := rest.NewDashboardHandler(dashboardService, timeout)
	healthHandler := rest.NewHealthHandler(map[string]rest.Pinger{
		"postgres": rest.PingFunc(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
		"redis": rest.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}),
	})

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.App.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, rest.IdempotencyHeader},
	}))
	e.Use(httpmetrics.Middleware())
	e.Use(middleware.RequestLogger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", healthHandler.Healthz)

	// Auth middleware
	authRequired := middleware.AuthMiddleware(jwt, sessionRepo)

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupAuthRoutes(api, userHandler, authRequired)
	router.SetupAdminRoutes(api, userHandler, dashboardHandler, authRequired)
	router.SetupDashboardRoutes(api, dashboardHandler, authRequired)
	router.SetupAnalyticsRoutes(api, dashboardHandler, authRequired)
	router.SetupCategoryRoutes(api, categoryHandler, authRequired)
	router.SetupProductRoutes(api, productHandler, authRequired)
	router.SetOrdersRoutes(api, ordersHandler, authRequired)
	router.SetWebhookHandler(api, webhookHandler)

	// Outbox relay
	relayCtx, stopRelay := context.WithCancel(context.Background())
	relay := outbox.NewProcessor(outboxRepo, producer, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize, logger.With("component", "outbox"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(relayCtx)
	}()

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", err)
	}

	stopRelay()
	wg.Wait()

	logger.Info("Server stopped")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/uslugi-backend/internal/config"
	"github.com/ignatzorin/uslugi-backend/internal/db"
	"github.com/ignatzorin/uslugi-backend/internal/events"
	httpHandlers "github.com/ignatzorin/uslugi-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/uslugi-backend/internal/http/router"
	"github.com/ignatzorin/uslugi-backend/internal/logger"
	"github.com/ignatzorin/uslugi-backend/internal/payments"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
	"github.com/ignatzorin/uslugi-backend/internal/service"
	"github.com/ignatzorin/uslugi-backend/internal/storage"
	"github.com/ignatzorin/uslugi-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	requestRepo := repository.NewRequestRepository(dbConn)
	quoteRepo := repository.NewQuoteRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	photoRepo := repository.NewPhotoRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	documentRepo := repository.NewDocumentRepository(dbConn)

	// Шина доменных событий и вебсокеты.
	bus := events.NewBus()
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	bus.Subscribe(notificationService.HandleEvent)

	matchingService := service.NewMatchingService(userRepo, bus, cfg.GeneralRadiusKm, cfg.WorkOrderRadiusKm)
	jobService := service.NewJobService(jobRepo, categoryRepo, matchingService)
	mediationService := service.NewMediationService(requestRepo, jobRepo, userRepo, bus)
	quoteService := service.NewQuoteService(quoteRepo, jobRepo, userRepo, bus, cfg.WorkStartWindow)
	verificationService := service.NewVerificationService(documentRepo)

	processor := payments.NewClient(cfg.ProcessorBaseURL, cfg.ProcessorAPIKey)
	escrowService := service.NewEscrowService(paymentRepo, requestRepo, photoRepo, userRepo, processor, bus, cfg.PlatformFeeRate, cfg.TaxRate)

	// Фоновый обход просроченных смет и зависших заявок.
	sweeper := service.NewSweeper(quoteService, mediationService, requestRepo, cfg.SweepInterval, cfg.StaleAssignment)
	go sweeper.Run(ctx)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	profileHandler := httpHandlers.NewProfileHandler(userRepo)
	jobHandler := httpHandlers.NewJobHandler(jobService)
	quoteHandler := httpHandlers.NewQuoteHandler(quoteService)
	requestHandler := httpHandlers.NewRequestHandler(mediationService)
	paymentHandler := httpHandlers.NewPaymentHandler(escrowService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	verificationHandler := httpHandlers.NewVerificationHandler(verificationService)
	mediaHandler := httpHandlers.NewMediaHandler(photoStorage)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		profileHandler,
		jobHandler,
		quoteHandler,
		requestHandler,
		paymentHandler,
		notificationHandler,
		verificationHandler,
		mediaHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

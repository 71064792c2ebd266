package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wheelitin-backend/internal/config"
	"github.com/ignatzorin/wheelitin-backend/internal/db"
	"github.com/ignatzorin/wheelitin-backend/internal/events"
	httpHandlers "github.com/ignatzorin/wheelitin-backend/internal/http/handlers"
	"github.com/ignatzorin/wheelitin-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/wheelitin-backend/internal/http/router"
	"github.com/ignatzorin/wheelitin-backend/internal/infrastructure/geo"
	"github.com/ignatzorin/wheelitin-backend/internal/infrastructure/mail"
	"github.com/ignatzorin/wheelitin-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/wheelitin-backend/internal/infrastructure/storage"
	"github.com/ignatzorin/wheelitin-backend/internal/interface/http/handler"
	"github.com/ignatzorin/wheelitin-backend/internal/logger"
	"github.com/ignatzorin/wheelitin-backend/internal/media"
	"github.com/ignatzorin/wheelitin-backend/internal/scheduler"
	"github.com/ignatzorin/wheelitin-backend/internal/service"
	"github.com/ignatzorin/wheelitin-backend/internal/usecase/report"
	"github.com/ignatzorin/wheelitin-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init(cfg.LogLevel)
	}
	appLog := logger.Component("main")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPool)
	if err != nil {
		appLog.WithError(err).Fatal("ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrationsFromDir(ctx, dbConn, cfg.MigrationsPath, logger.Component("migrations")); err != nil {
		appLog.WithError(err).Fatal("ошибка миграций")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			appLog.WithError(err).Fatal("некорректный REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
	}

	tokenManager, err := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		appLog.WithError(err).Fatal("не удалось создать менеджер токенов")
	}
	listCache := service.NewCacheService()
	defer listCache.Close()

	// Репозитории.
	reportRepo := persistence.NewReportRepository(dbConn, cfg.AppointmentTZ)
	userRepo := persistence.NewUserRepository(dbConn)

	// Фоновые воркеры живут дольше HTTP: их контекст отменяется только после
	// того, как очереди медиа и событий разобраны.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	// Шина событий.
	bus := events.NewInMemoryBus(logger.Component("events"), cfg.EventQueueSize)

	// Фоновая загрузка медиа.
	blobStore, err := newBlobStore(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("не удалось подготовить хранилище медиа")
	}
	reconciler := media.NewReconciler(blobStore, reportRepo, media.Config{
		Workers: cfg.MediaWorkers,
	}, logger.Component("media"))
	reconciler.Start(workCtx)

	geocoder := geo.NewGeocoder(geo.Config{
		GoogleKey:         cfg.GoogleGeocodeKey,
		RequestsPerSecond: cfg.GeocodeRPS,
	}, nil)

	// Сценарии.
	locker := report.NewLocker()
	submitReport := report.NewSubmitReportUseCase(reportRepo, userRepo, geocoder, reconciler, bus, logger.Component("reports"))
	submitQuotation := report.NewSubmitQuotationUseCase(reportRepo, userRepo, locker, bus)
	acceptQuotation := report.NewAcceptQuotationUseCase(reportRepo, locker, bus, cfg.AppointmentTZ)
	startWork := report.NewStartScheduledWorkUseCase(reportRepo, locker, bus)
	completeReport := report.NewCompleteReportUseCase(reportRepo, locker, bus)
	submitReview := report.NewSubmitReviewUseCase(reportRepo, locker, bus)
	getReport := report.NewGetReportUseCase(reportRepo)
	listPending := report.NewListPendingReportsUseCase(reportRepo, userRepo, listCache)
	listUserReports := report.NewListUserReportsUseCase(reportRepo)
	chatAuthorizer := report.NewChatAuthorizer(reportRepo)

	fire := func(ctx context.Context, reportID uuid.UUID) error {
		_, err := startWork.Execute(ctx, reportID)
		return err
	}

	// Планировщик перевода в работу.
	var transitions report.TransitionScheduler
	switch cfg.SchedulerBackend {
	case config.SchedulerBackendRedis:
		asynqScheduler, err := scheduler.NewAsynqScheduler(cfg.RedisURL, cfg.AsynqQueue)
		if err != nil {
			appLog.WithError(err).Fatal("не удалось создать планировщик")
		}
		defer asynqScheduler.Close()

		worker, err := scheduler.NewWorker(cfg.RedisURL, cfg.AsynqQueue, 0, fire, logger.Component("scheduler"))
		if err != nil {
			appLog.WithError(err).Fatal("не удалось создать обработчик задач")
		}
		go worker.Run(ctx)

		transitions = asynqScheduler
	default:
		manager := scheduler.NewManager(fire, logger.Component("scheduler"))
		defer manager.Stop()
		transitions = manager
	}

	// Вебсокеты.
	hub := ws.NewHub(chatAuthorizer, logger.Component("ws"))
	go hub.Run(ctx)

	// Письма.
	var notifier report.Notifier = mail.NewLogDispatcher(logger.Component("mail"))
	if cfg.SMTP.Enabled() {
		notifier = mail.NewSMTPDispatcher(mail.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.FromEmail,
			FromName:  cfg.SMTP.FromName,
			Timeout:   10 * time.Second,
		}, logger.Component("mail"))
	}

	report.NewEffects(report.EffectsConfig{
		Emitter:   hub,
		Notifier:  notifier,
		Users:     userRepo,
		Scheduler: transitions,
		Cache:     listCache,
		BaseURL:   cfg.AppBaseURL,
		Log:       logger.Component("effects"),
	}).Register(bus)
	go bus.Run(workCtx)

	armed, err := scheduler.Recover(ctx, reportRepo, transitions, logger.Component("scheduler"))
	if err != nil {
		appLog.WithError(err).Error("не удалось восстановить запланированные визиты")
	} else {
		appLog.WithField("armed", armed).Info("запланированные визиты восстановлены")
	}

	// HTTP.
	rateLimitStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		appLog.WithError(err).Fatal("не удалось создать хранилище rate limit")
	}

	checks := map[string]httpHandlers.Pinger{"database": dbConn}
	if redisClient != nil {
		checks["redis"] = httpHandlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	engine := httpRouter.SetupRouter(cfg, httpRouter.Deps{
		Reports: handler.NewReportHandler(handler.ReportUseCases{
			Submit:          submitReport,
			SubmitQuotation: submitQuotation,
			Accept:          acceptQuotation,
			Complete:        completeReport,
			Review:          submitReview,
			Get:             getReport,
			ListPending:     listPending,
			ListUserReports: listUserReports,
		}),
		WS:             httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:         httpHandlers.NewHealthHandler(checks),
		Tokens:         tokenManager,
		RateLimitStore: rateLimitStore,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	serverStopped := make(chan struct{})
	go func() {
		defer close(serverStopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("ошибка остановки http сервера")
		}
	}()

	appLog.WithFields(logrus.Fields{
		"port":      cfg.HTTPPort,
		"scheduler": cfg.SchedulerBackend,
		"blob":      cfg.BlobBackend,
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.WithError(err).Fatal("сервер завершился с ошибкой")
	}

	// ListenAndServe возвращается сразу, Shutdown ждёт активные запросы
	<-serverStopped

	reconciler.Stop()
	bus.Close()
	cancelWork()
}

func newBlobStore(ctx context.Context, cfg *config.Config) (media.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendCloudinary:
		return storage.NewCloudinaryStore(cfg.CloudinaryURL, "jobs")
	case config.BlobBackendMinio:
		store, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:    cfg.Minio.Endpoint,
			AccessKey:   cfg.Minio.AccessKey,
			SecretKey:   cfg.Minio.SecretKey,
			Bucket:      cfg.Minio.Bucket,
			UseSSL:      cfg.Minio.UseSSL,
			PublicURL:   cfg.Minio.PublicURL,
			MaxUploadMB: cfg.MaxUploadSizeMB,
		}, nil)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return storage.NewLocalStore(cfg.MediaStoragePath, cfg.MediaPublicURL, cfg.MaxUploadSizeMB, nil)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

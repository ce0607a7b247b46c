package appServer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bloodlink/backend/config"
	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/service"
	"github.com/bloodlink/backend/internal/transport"
	"github.com/bloodlink/backend/internal/worker"

	"github.com/bloodlink/backend/pkg/postgres"
	"github.com/bloodlink/backend/pkg/push"
	"github.com/bloodlink/backend/pkg/queue"
	"github.com/bloodlink/backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	hospitalRepo := repository.NewHospitalRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	geoRepo := repository.NewGeoRepository(db)

	// Initialize push client
	var pushClient *push.Client
	if cfg.Push.Enabled && cfg.Push.WebhookURL != "" {
		pushClient = push.NewClient(cfg.Push.WebhookURL, cfg.Push.AuthToken)
		logrus.Info("Push client initialized")
	} else {
		pushClient = push.NewClient("", "")
		logrus.Warn("Push webhook not configured, deliveries disabled")
	}

	var redisQueue queue.Queue
	var taskPublisher service.TaskPublisher

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	if cfg.Redis.Host != "" {
		queueConfig := queue.DefaultRedisQueueConfig()
		queueConfig.Addr = redisAddr
		queueConfig.Password = cfg.Redis.Password
		queueConfig.DB = cfg.Redis.DB
		queueConfig.MaxRetries = cfg.Queue.MaxRetries
		queueConfig.BaseDelay = cfg.Queue.BaseDelay
		queueConfig.EnableDLQ = cfg.Queue.EnableDLQ

		retryManager := queue.NewRetryManager(cfg.Queue.MaxRetries, cfg.Queue.BaseDelay)
		redisClient := redis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()
		dlqHandler := queue.NewDefaultDLQHandler(redisClient, queueConfig.DLQ, queueConfig.MainQueue)

		redisQueue, err = queue.NewRedisQueue(queueConfig, retryManager, dlqHandler)
		if err != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", err)
		} else {
			logrus.Info("Redis queue initialized")
			taskPublisher = service.NewQueueAdapter(redisQueue)
		}
	}

	// Initialize services
	notificationService := service.NewNotificationService(notificationRepo, adminRepo, taskPublisher)
	dispatchService := service.NewDispatchService(requestRepo, inventoryRepo, responseRepo, geoRepo, hospitalRepo, notificationService, taskPublisher, cfg.Dispatch)
	responseService := service.NewResponseService(responseRepo, requestRepo, donorRepo, notificationService)
	inventoryService := service.NewInventoryService(inventoryRepo, hospitalRepo)
	donationService := service.NewDonationService(donationRepo, donorRepo, hospitalRepo, requestRepo, inventoryRepo, geoRepo, notificationService, taskPublisher, cfg.Dispatch.NearestHospitalKm)
	hospitalService := service.NewHospitalService(hospitalRepo, geoRepo, cfg.Dispatch.DonorMatchRadiusKm)
	historyService := service.NewHistoryService(requestRepo, responseRepo)

	// Initialize task handler if queue is available
	if redisQueue != nil {
		taskHandler := queue.NewTaskHandler(pushClient, dispatchService)

		// Start queue consumer
		go func() {
			ctx := context.Background()
			if err := redisQueue.Subscribe(ctx, taskHandler.HandleTask); err != nil {
				logrus.Errorf("Queue subscriber error: %v", err)
			}
		}()
		logrus.Info("Queue subscriber started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize reminder worker
	reminderWorker := worker.NewRequestReminderWorker(dispatchService, cfg.Worker.ReminderInterval, cfg.Worker.StaleAfter)
	go reminderWorker.Start(ctx)
	logrus.Info("Reminder worker started")

	// Initialize handlers
	requestHandler := transport.NewRequestHandler(dispatchService)
	responseHandler := transport.NewResponseHandler(responseService)
	inventoryHandler := transport.NewInventoryHandler(inventoryService)
	notificationHandler := transport.NewNotificationHandler(notificationService)
	hospitalHandler := transport.NewHospitalHandler(hospitalService)
	donationHandler := transport.NewDonationHandler(donationService)
	historyHandler := transport.NewHistoryHandler(historyService)

	// Setup HTTP server
	if cfg.Server.Env == "production" || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(requestHandler, responseHandler, inventoryHandler, notificationHandler, hospitalHandler, donationHandler, historyHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if redisQueue != nil {
		if err := redisQueue.Close(); err != nil {
			logrus.Errorf("error occured on queue shutting down: %s", err.Error())
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

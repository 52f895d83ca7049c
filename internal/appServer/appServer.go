package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mcp-events/ticketflow/config"
	repository "github.com/mcp-events/ticketflow/internal/database/postgres"
	redisdb "github.com/mcp-events/ticketflow/internal/database/redis"
	"github.com/mcp-events/ticketflow/internal/notification"
	"github.com/mcp-events/ticketflow/internal/service"
	"github.com/mcp-events/ticketflow/internal/transport"
	"github.com/mcp-events/ticketflow/internal/worker"
	"github.com/mcp-events/ticketflow/pkg/kafka"
	"github.com/mcp-events/ticketflow/pkg/paypal"
	"github.com/mcp-events/ticketflow/pkg/postgres"
	"github.com/mcp-events/ticketflow/pkg/queue"
	"github.com/mcp-events/ticketflow/pkg/redis"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
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

	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	eventRepo := repository.NewEventRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logrus.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer redisClient.Close()

	sessionStore := redisdb.NewSessionStore(redisClient, cfg.Session.TTL)
	jobStore := redisdb.NewJobStore(redisClient)

	redisQueue, err := queue.NewRedisQueue(redisClient, queue.DefaultRedisQueueConfig())
	if err != nil {
		logrus.Fatalf("Failed to initialize task queue: %v", err)
	}
	defer redisQueue.Close()

	notifier, err := notification.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		logrus.Fatalf("Failed to initialize Telegram notifier: %v", err)
	}

	var producer kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
	}

	paypalClient := paypal.NewClient(cfg.PayPal.BaseURL, cfg.PayPal.ClientID, cfg.PayPal.Secret)

	eventService := service.NewEventService(eventRepo)
	purchaseService := service.NewPurchaseService(eventRepo, memberRepo, sessionStore)
	paymentService := service.NewPaymentService(
		eventRepo, purchaseRepo, paypalClient, redisQueue, producer, notifier,
		cfg.PayPal.Currency, cfg.Worker.PurchaseMaxAge,
	)
	adminService := service.NewAdminService(purchaseRepo, memberRepo, &cfg.Admin)
	jobService := service.NewJobService(eventRepo, purchaseRepo, jobStore, redisQueue, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskWorker := worker.NewTaskWorker(redisQueue, jobService, paymentService)
	if err := taskWorker.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start task worker: %v", err)
	}

	cleanupWorker := worker.NewPurchaseCleanupWorker(paymentService, cfg.Worker.CleanupInterval)
	go cleanupWorker.Start(ctx)

	eventHandler := transport.NewEventHandler(eventService)
	purchaseHandler := transport.NewPurchaseHandler(purchaseService)
	orderHandler := transport.NewOrderHandler(purchaseService, paymentService)
	adminHandler := transport.NewAdminHandler(adminService, jobService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		handler := transport.InitRoutes(eventHandler, purchaseHandler, orderHandler, adminHandler, adminService)
		if err := srv.Run(cfg, handler); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

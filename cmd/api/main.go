package main

import (
	"context"
	"log"
	"os"

	_ "weddingplanner/api/swagger" // swagger docs
	"weddingplanner/internal/config"
	"weddingplanner/internal/database"
	"weddingplanner/internal/handler"
	"weddingplanner/internal/middleware"
	"weddingplanner/internal/notify"
	"weddingplanner/internal/repository"
	"weddingplanner/internal/service"
	"weddingplanner/internal/storage"
	"weddingplanner/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Wedding Planner API
// @version         1.0
// @description     Quote, invoice and document workflow for wedding planners.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if os.Getenv("GIN_MODE") == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL successfully")

	// Object storage for rendered PDFs
	uploader, err := storage.NewMinioUploader(storage.MinioConfig{
		Endpoint:      cfg.Minio.Endpoint,
		AccessKey:     cfg.Minio.AccessKey,
		SecretKey:     cfg.Minio.SecretKey,
		Bucket:        cfg.Minio.Bucket,
		UseSSL:        cfg.Minio.UseSSL,
		PublicBaseURL: cfg.Minio.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal("MinIO client init failed", zap.Error(err))
	}
	if err := uploader.EnsureBucket(context.Background()); err != nil {
		logger.Fatal("MinIO bucket init failed", zap.Error(err))
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Optional notification channels: a missing key file or SMTP host just
	// disables that channel.
	var pusher *notify.Pusher
	if cfg.FirebaseCredentials != "" {
		pusher, err = notify.NewPusher(context.Background(), cfg.FirebaseCredentials)
		if err != nil {
			logger.Warn("FCM init failed, push notifications disabled", zap.Error(err))
			pusher = nil
		}
	}
	var mailer *notify.Mailer
	if cfg.SMTP.Host != "" {
		mailer = notify.NewMailer(notify.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromName:  cfg.SMTP.FromName,
			FromEmail: cfg.SMTP.FromEmail,
			UseTLS:    cfg.SMTP.UseTLS,
		})
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)
	revenueRepo := repository.NewRevenueRepository(db)

	notifier := notify.NewService(notificationRepo, userRepo, pusher, mailer, wsHub, logger)

	userService := service.NewUserService(userRepo)
	clientService := service.NewClientService(clientRepo, userRepo, txManager)
	vendorService := service.NewVendorService(vendorRepo)
	quoteService := service.NewQuoteService(quoteRepo, invoiceRepo, documentRepo, clientRepo, uploader, notifier, txManager, logger)
	invoiceService := service.NewInvoiceService(invoiceRepo, documentRepo, clientRepo, uploader, notifier, nil, txManager, logger)
	poService := service.NewPurchaseOrderService(quoteRepo, vendorRepo, documentRepo, uploader, logger)
	documentService := service.NewDocumentService(documentRepo, clientRepo, uploader, logger)
	notificationService := service.NewNotificationService(notificationRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo, revenueRepo, logger)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	clientHandler := handler.NewClientHandler(clientService)
	vendorHandler := handler.NewVendorHandler(vendorService)
	quoteHandler := handler.NewQuoteHandler(quoteService, poService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	documentHandler := handler.NewDocumentHandler(documentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	// Overdue sweep: flip unpaid invoices past their due date every night.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("15 2 * * *", func() {
		count, err := invoiceService.MarkOverdue(context.Background())
		if err != nil {
			logger.Error("overdue sweep failed", zap.Error(err))
			return
		}
		if count > 0 {
			logger.Info("overdue sweep finished", zap.Int("flipped", count))
		}
	}); err != nil {
		logger.Fatal("Scheduler init failed", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	api := router.Group("/api")
	clientHandler.RegisterRoutes(api)
	vendorHandler.RegisterRoutes(api)
	quoteHandler.RegisterRoutes(api)
	invoiceHandler.RegisterRoutes(api)
	documentHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)

	logger.Info("Server listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

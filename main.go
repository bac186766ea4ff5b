package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"account-service/config"
	"account-service/controllers"
	"account-service/database"
	apperrors "account-service/errors"
	"account-service/kafka"
	"account-service/logger"
	"account-service/middleware"
	"account-service/models"
	"account-service/repository"
	"account-service/routes"
	"account-service/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Connect to the database and run migrations
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Could not connect to PostgreSQL: %v", err)
	}
	if err := models.Migrate(database.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = database.NewRedisClient(cfg.RedisURL)
	}

	catalog, err := services.NewTokenCatalog(services.DefaultTokenGrants)
	if err != nil {
		log.Fatalf("Invalid token catalog: %v", err)
	}

	userRepo := repository.NewGormUserRepository(database.DB)
	productRepo := repository.NewGormProductRepository(database.DB)
	orderRepo := repository.NewGormOrderRepository(database.DB)
	ledgerRepo := repository.NewGormLedgerRepository(database.DB)

	var producer kafka.ProducerAPI
	if cfg.KafkaBrokers != "" {
		kafkaProducer := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.LedgerTopic)
		defer kafkaProducer.Close()
		producer = kafkaProducer
	}

	var snsClient services.SNSPublisher
	if cfg.LedgerSNSTopic != "" {
		client, err := services.NewSNSClient(context.Background())
		if err != nil {
			zlog.Warn("SNS disabled", zap.Error(err))
		} else {
			snsClient = client
		}
	}

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)
	tokenService := services.NewTokenService(cfg.JWTSecret)
	productCache := services.NewProductCache(redisClient, zlog)

	ledgerService := services.NewLedgerService(
		ledgerRepo, userRepo, productRepo,
		catalog, productCache,
		producer, snsClient, cfg.LedgerSNSTopic,
		zlog,
	)
	accountService := services.NewAccountService(userRepo, tokenService)
	orderService := services.NewOrderService(orderRepo, productRepo, stripeSvc, strings.Split(cfg.AllowedOrigins, ",")[0], zlog)
	productService := services.NewProductService(productRepo, catalog, zlog)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(zlog))
	r.Use(apperrors.ErrorMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	routes.RegisterRoutes(r, &routes.Controllers{
		Account: controllers.NewAccountController(accountService),
		Ledger:  controllers.NewLedgerController(ledgerService),
		Orders:  controllers.NewOrderController(orderService),
		Product: controllers.NewProductController(productService),
		Webhook: controllers.NewWebhookController(stripeSvc, orderRepo, ledgerService, zlog),
	}, tokenService)

	zlog.Info("Account service started", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}

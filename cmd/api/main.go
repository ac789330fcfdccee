package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sauverpro/Safe-Vend-Backend/internal/cache"
	"github.com/sauverpro/Safe-Vend-Backend/internal/config"
	"github.com/sauverpro/Safe-Vend-Backend/internal/database"
	"github.com/sauverpro/Safe-Vend-Backend/internal/handler"
	"github.com/sauverpro/Safe-Vend-Backend/internal/middleware"
	"github.com/sauverpro/Safe-Vend-Backend/internal/repository"
	"github.com/sauverpro/Safe-Vend-Backend/internal/service"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
	"github.com/sauverpro/Safe-Vend-Backend/internal/worker"
	"github.com/sauverpro/Safe-Vend-Backend/pkg/paysim"
)

// main is the application entrypoint for the Safe-Vend fleet backend.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting safe-vend api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Initialize storefront cache
	storefrontCache := cache.NewStorefrontCache(redisClient)

	// 4. Initialize JWT signing
	utils.InitJWT(cfg.JWTSecret)

	// 5. Initialize repositories
	deviceRepo := repository.NewDeviceRepository(db)
	productRepo := repository.NewProductRepository(db)
	stockRepo := repository.NewDeviceProductRepository(db)
	trxRepo := repository.NewTransactionRepository(db)

	// 6. Initialize services
	availabilitySvc := service.NewAvailabilityService(deviceRepo, stockRepo)
	trxSvc := service.NewTransactionService(trxRepo, stockRepo, availabilitySvc, storefrontCache)
	deviceSvc := service.NewDeviceService(deviceRepo, productRepo, stockRepo, trxRepo, storefrontCache)
	productSvc := service.NewProductService(productRepo, trxRepo)
	authSvc := service.NewAuthService(cfg.Admin)

	// 6a. Initialize payment simulator and wire its callback to the
	// transaction service. The gateway is attached after construction
	// because its callback closes over the service.
	simulator := paysim.NewSimulator(paysim.Config{
		Delay:       cfg.PaySim.Delay,
		FailureRate: cfg.PaySim.FailureRate,
	}, trxSvc.HandleGatewayResult)
	trxSvc.SetGateway(simulator)
	log.Info().
		Dur("delay", cfg.PaySim.Delay).
		Float64("failure_rate", cfg.PaySim.FailureRate).
		Msg("payment simulator connected to transaction service")

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:      handler.NewHealthHandler(db, redisClient),
		Device:      handler.NewDeviceHandler(deviceSvc),
		Product:     handler.NewProductHandler(productSvc),
		Transaction: handler.NewTransactionHandler(trxSvc),
		Auth:        handler.NewAuthHandler(authSvc),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start the stale-transaction watchdog
	go worker.NewWatchdogWorker(trxSvc, cfg.Worker.WatchdogInterval, cfg.Worker.WatchdogStaleAfter).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers and drop pending settlement timers
	cancel()
	simulator.Close()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health      *handler.HealthHandler
	Device      *handler.DeviceHandler
	Product     *handler.ProductHandler
	Transaction *handler.TransactionHandler
	Auth        *handler.AuthHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// Purchase flow (public, driven by the machine UI)
	router.POST("/v1/transactions", handlers.Transaction.CreateTransaction)
	router.GET("/v1/transactions", handlers.Transaction.ListTransactions)
	router.GET("/v1/transactions/device/:deviceId", handlers.Transaction.ListDeviceTransactions)
	router.GET("/v1/transactions/:transactionId", handlers.Transaction.GetTransaction)

	// QR storefront lookup (public, what the customer scans)
	router.GET("/v1/devices/qr/:qrData", handlers.Device.GetStorefront)

	// Catalog reads (public)
	router.GET("/v1/devices", handlers.Device.ListDevices)
	router.GET("/v1/devices/:id", handlers.Device.GetDevice)
	router.GET("/v1/products", handlers.Product.ListProducts)
	router.GET("/v1/products/:id", handlers.Product.GetProduct)

	// Operator login
	router.POST("/v1/admin/auth/login", handlers.Auth.Login)

	// Fleet management (operator token required)
	devices := router.Group("/v1/devices")
	devices.Use(jwtMiddleware.Handle())
	{
		devices.POST("", handlers.Device.CreateDevice)
		devices.PUT("/:id", handlers.Device.UpdateDevice)
		devices.DELETE("/:id", handlers.Device.DeleteDevice)
		devices.POST("/:id/products", handlers.Device.SetStock)
		devices.PUT("/:id/products/:productId", handlers.Device.UpdateStock)
		devices.DELETE("/:id/products/:productId", handlers.Device.RemoveStock)
	}

	products := router.Group("/v1/products")
	products.Use(jwtMiddleware.Handle())
	{
		products.POST("", handlers.Product.CreateProduct)
		products.PUT("/:id", handlers.Product.UpdateProduct)
		products.DELETE("/:id", handlers.Product.DeleteProduct)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

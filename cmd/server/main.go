package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_dashboard/internal/config"
	"wallet_dashboard/internal/handler"
	"wallet_dashboard/internal/loader"
	"wallet_dashboard/internal/logger"
	"wallet_dashboard/internal/middleware"
	"wallet_dashboard/internal/repository"
	"wallet_dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// --- Configuration ---
	cfg, err := config.Load()
	log := logger.New(os.Getenv("LOG_LEVEL"))
	if envErr != nil {
		log.Info("No .env file found or error loading, relying on environment variables")
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log = logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Data Source ---
	var source loader.Source
	switch cfg.DataSource {
	case config.DataSourcePostgres:
		// An unreachable database degrades to an empty dashboard; reload reconnects.
		var dbPool *pgxpool.Pool
		defer func() {
			if dbPool != nil {
				dbPool.Close()
			}
		}()
		source = loader.NewLazyPostgresSource(func(ctx context.Context) (repository.TransactionRepository, error) {
			pool, err := config.ConnectDB(ctx, cfg.DB, log)
			if err != nil {
				return nil, err
			}
			if err := config.AutoMigrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, err
			}
			dbPool = pool
			return repository.NewTransactionRepository(pool), nil
		})
	default:
		source = loader.NewCSVSource(cfg.CSVPath)
	}

	// --- Initialize Services ---
	dashboardService := service.NewDashboardService(loader.New(source, log), cfg.CurrencyPrefix, log)
	if _, err := dashboardService.Reload(ctx); err != nil {
		log.Fatalf("Failed to load transactions: %v", err)
	}

	// --- Initialize Handlers ---
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)

	// --- Setup Gin Router ---
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORSMiddleware())

	// --- Register Routes ---
	apiGroup := router.Group("/api/v1")
	dashboardHandler.RegisterDashboardRoutes(apiGroup)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rows": dashboardService.DatasetSize()})
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Infof("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s", err)
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exiting")
}

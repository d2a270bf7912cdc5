package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	analyticsapp "github.com/anisabintang/ecommerce-dashboard/internal/application/analytics"
	"github.com/anisabintang/ecommerce-dashboard/internal/infrastructure/config"
	"github.com/anisabintang/ecommerce-dashboard/internal/infrastructure/dataset"
	"github.com/anisabintang/ecommerce-dashboard/internal/infrastructure/logger"
	"github.com/anisabintang/ecommerce-dashboard/internal/interfaces/http/handler"
	"github.com/anisabintang/ecommerce-dashboard/internal/interfaces/http/middleware"
	"github.com/anisabintang/ecommerce-dashboard/internal/interfaces/http/router"
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
		_ = logger.Sync(log)
	}()

	log.Info("Starting analytics dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Load the dataset once at startup. The service is read-only after this point.
	loader := dataset.NewLoader(log,
		dataset.WithLoaderDelimiter(cfg.Dataset.DelimiterRune()),
		dataset.WithMaxRowErrors(cfg.Dataset.MaxRowErrors),
	)
	ds, report, err := loader.LoadFile(cfg.Dataset.Path)
	if err != nil {
		log.Fatal("Failed to load dataset",
			zap.String("path", cfg.Dataset.Path),
			zap.Error(err),
		)
	}
	log.Info("Dataset loaded",
		zap.String("path", cfg.Dataset.Path),
		zap.Int("loaded_rows", report.LoadedRows),
		zap.Int("rejected_rows", report.RejectedRows),
		zap.Int("field_errors", report.FieldErrors),
	)

	// Initialize the aggregation service
	analyticsService := analyticsapp.NewService(ds, analyticsapp.Options{
		TopCities:         cfg.Analytics.TopCities,
		TopCustomers:      cfg.Analytics.TopCustomers,
		SlowestCategories: cfg.Analytics.SlowestCategories,
		HistogramBins:     cfg.Analytics.HistogramBins,
	}, log)

	// Initialize HTTP handlers
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	dashboardHandler := handler.NewDashboardHandler(analyticsService)
	systemHandler := handler.NewSystemHandler(ds)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Liveness endpoint (outside API versioning)
	engine.GET("/healthz", systemHandler.GetHealth)

	// Server-rendered dashboard page
	engine.GET("/dashboard", dashboardHandler.GetDashboard)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	analyticsRoutes := router.NewDomainGroup("analytics", "/analytics")
	analyticsRoutes.GET("/overview", analyticsHandler.GetOverview)
	analyticsRoutes.GET("/daily-trend", analyticsHandler.GetDailyTrend)
	analyticsRoutes.GET("/demographics", analyticsHandler.GetDemographics)
	analyticsRoutes.GET("/products", analyticsHandler.GetProducts)
	analyticsRoutes.GET("/rfm", analyticsHandler.GetRFM)
	analyticsRoutes.GET("/payments", analyticsHandler.GetPayments)
	analyticsRoutes.GET("/price-distribution", analyticsHandler.GetPriceDistribution)
	r.Register(analyticsRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
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

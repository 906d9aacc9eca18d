package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vistacks/kiosk-agent/internal/config"
	"github.com/vistacks/kiosk-agent/internal/handlers"
	"github.com/vistacks/kiosk-agent/internal/middleware"
	"github.com/vistacks/kiosk-agent/internal/services"
	"github.com/vistacks/kiosk-agent/pkg/qr"
	"github.com/vistacks/kiosk-agent/pkg/validator"
	"github.com/vistacks/kiosk-agent/pkg/vms"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Vistacks Kiosk Agent")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Authenticate the terminal with the visitor-management backend
	logger.Info("Authenticating terminal with backend...")
	client := vms.NewClient(vms.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		TerminalID: cfg.API.TerminalID,
	}, logger)

	loginCtx, cancelLogin := context.WithTimeout(context.Background(), cfg.API.Timeout)
	if err := client.Login(loginCtx, cfg.API.TerminalEmail, cfg.API.TerminalPassword); err != nil {
		cancelLogin()
		logger.Fatalf("Terminal login failed: %v", err)
	}
	cancelLogin()

	if cfg.API.OrganizationCode != "" {
		orgCtx, cancelOrg := context.WithTimeout(context.Background(), cfg.API.Timeout)
		org, err := client.VerifyOrganization(orgCtx, cfg.API.OrganizationCode)
		cancelOrg()
		switch {
		case errors.Is(err, vms.ErrNotFound):
			logger.Fatalf("Organization code %q is unknown or expired", cfg.API.OrganizationCode)
		case err != nil:
			logger.WithError(err).Warn("Organization verification unavailable, continuing")
		default:
			logger.WithField("organization", org.Name).Info("Organization verified")
		}
	}

	// Initialize services
	logger.Info("Initializing services...")
	contactValidator := validator.NewContactValidator()
	flowService := services.NewFlowService(client, contactValidator, logger, cfg.Kiosk.CountdownSeconds)

	camera := qr.NewMJPEGCamera(cfg.Scanner.Devices)
	decoder := qr.NewDecoder()
	scanService := services.NewScanService(
		camera,
		decoder,
		client,
		flowService,
		logger,
		cfg.Scanner.DebounceWindow,
		cfg.Scanner.SimulatedScanDelay,
	)
	logger.Info("Services initialized")

	// Initialize handlers
	kioskHandler := handlers.NewKioskHandler(flowService, logger)
	scannerHandler := handlers.NewScannerHandler(scanService, logger)
	adminHandler := handlers.NewAdminHandler(flowService, scanService, client, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	// CORS configuration for the touchscreen shell
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(client))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		session := v1.Group("/session")
		{
			session.GET("", kioskHandler.GetSession)
			session.POST("/option", kioskHandler.SelectOption)
			session.POST("/access-code", kioskHandler.SubmitAccessCode)
			session.POST("/lookup", kioskHandler.Lookup)
			session.POST("/confirm-profile", kioskHandler.ConfirmProfile)
			session.POST("/registration", kioskHandler.SubmitRegistration)
			session.POST("/checkout", kioskHandler.SubmitCheckout)
			session.POST("/back", kioskHandler.Back)
			session.POST("/complete", kioskHandler.Complete)
			session.POST("/clear-error", kioskHandler.ClearError)
		}

		scanner := v1.Group("/scanner")
		{
			scanner.GET("/state", scannerHandler.State)
			scanner.POST("/start", scannerHandler.Start)
			scanner.POST("/stop", scannerHandler.Stop)
			scanner.POST("/decode", scannerHandler.Decode)
		}

		v1.GET("/emergency-contacts", kioskHandler.EmergencyContacts)

		// Staff maintenance routes (PIN guarded)
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdminPIN(cfg.Security.AdminPINHash))
		{
			admin.POST("/reset", adminHandler.Reset)
			admin.GET("/status", adminHandler.Status)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Kiosk agent listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down kiosk agent...")

	// Release the camera before the HTTP surface goes away
	scanService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Kiosk agent exited successfully")
}

// healthCheckHandler reports the agent's backend connectivity.
func healthCheckHandler(client *vms.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if !client.TokenValid() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":      status,
			"terminal_id": client.TerminalID(),
			"version":     version,
			"timestamp":   time.Now().Unix(),
		})
	}
}

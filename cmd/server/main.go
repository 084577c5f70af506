package main

import (
	"log/slog"
	"os"
	"time"

	"kylas-whatsapp-bridge/internal/api"
	"kylas-whatsapp-bridge/internal/config"
	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/mailer"
	"kylas-whatsapp-bridge/internal/messaging"
	"kylas-whatsapp-bridge/internal/wapiy"
	"kylas-whatsapp-bridge/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting kylas-whatsapp bridge")

	db, err := database.Init(cfg)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	accounts := database.NewAccountStore(db)
	templates := database.NewTemplateStore(db)

	crmClient := kylas.NewClient(cfg)
	providerClient := wapiy.NewClient(cfg)
	tokens := kylas.NewTokenManager(crmClient, accounts, logger)
	resolver := kylas.NewResolver(crmClient, tokens, cfg.DealLeadField, logger)
	dispatcher := messaging.NewDispatcher(providerClient, logger)
	activityLogger := messaging.NewActivityLogger(crmClient, tokens, logger)
	otpMailer := mailer.New(cfg)

	webhookHandler := webhook.NewHandler(accounts, resolver, dispatcher, activityLogger, cfg.WebhookSecret, logger)
	authHandler := api.NewAuthHandler(crmClient, accounts, logger)
	otpHandler := api.NewOTPHandler(providerClient, accounts, otpMailer, logger)
	projectHandler := api.NewProjectHandler(providerClient, accounts, logger)
	templateHandler := api.NewTemplateHandler(accounts, templates, logger)
	messageHandler := api.NewMessageHandler(accounts, crmClient, tokens, resolver, dispatcher, activityLogger, providerClient, logger)
	appActionHandler := api.NewAppActionHandler(accounts, crmClient, tokens, providerClient, logger)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Provider Webhook Routes
	r.POST("/webhook/redington", webhookHandler.HandleEvent)

	apiGroup := r.Group("/api")
	{
		// Auth & Linking Routes
		apiGroup.POST("/kylas/callback", authHandler.KylasCallback)
		apiGroup.POST("/send-otp", otpHandler.SendOTP)
		apiGroup.POST("/verify-otp", otpHandler.VerifyOTP)
		apiGroup.GET("/get-projects", projectHandler.GetProjects)
		apiGroup.POST("/connect-project", projectHandler.ConnectProject)

		// Template Routes
		apiGroup.POST("/save-template", templateHandler.SaveTemplate)
		apiGroup.GET("/get-templates", templateHandler.GetTemplates)

		// Messaging Routes
		apiGroup.GET("/lead-details/:leadId/:userId", messageHandler.GetLeadDetails)
		apiGroup.POST("/check-or-create-contact", messageHandler.CheckOrCreateContact)
		apiGroup.POST("/send-message", messageHandler.SendMessage)
		apiGroup.POST("/send-template-message", messageHandler.SendTemplateMessage)

		// CRM App Action Routes
		apiGroup.GET("/appactions", appActionHandler.HandleAppAction)
	}

	logger.Info("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package main runs the training registration HTTP API with the admin live feed and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-training/backend/config"
	"github.com/aura-training/backend/internal/activity"
	"github.com/aura-training/backend/internal/auth"
	"github.com/aura-training/backend/internal/contact"
	"github.com/aura-training/backend/internal/emaillogs"
	"github.com/aura-training/backend/internal/formations"
	"github.com/aura-training/backend/internal/middleware"
	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/internal/notifications"
	"github.com/aura-training/backend/internal/realtime"
	"github.com/aura-training/backend/internal/registrations"
	"github.com/aura-training/backend/internal/sessions"
	"github.com/aura-training/backend/internal/uploads"
	"github.com/aura-training/backend/pkg/database"
	"github.com/aura-training/backend/pkg/events"
	"github.com/aura-training/backend/pkg/mailer"
	"github.com/aura-training/backend/pkg/queue"
	"github.com/aura-training/backend/pkg/redis"
	"github.com/aura-training/backend/pkg/response"
	"github.com/aura-training/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	if err := database.Migrate(cfg.Database.DSN(), logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			UploadsBucket:        cfg.AWS.UploadsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	// Notifications
	emailLogRepo := emaillogs.NewRepository(pool)
	var transport notifications.Transport
	if cfg.Email.SMTPHost != "" {
		transport = mailer.NewSMTP(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass,
			cfg.Email.FromAddress, cfg.Email.FromName, logger)
	} else {
		logger.Warn("SMTP_HOST not set; emails are logged, not sent")
		transport = mailer.NewLogTransport(logger)
	}
	dispatcher, err := notifications.NewDispatcher(transport, emailLogRepo, logger)
	if err != nil {
		logger.Fatal("email templates", zap.Error(err))
	}

	// Activity: admin live feed across instances + broker
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	publisher := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
	defer publisher.Close()
	fanout := activity.NewFanout(publisher, hub, logger)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.Auth.ChallengeTTL)
	var google auth.GoogleVerifier
	if cfg.Google.ClientID != "" {
		google = auth.NewIDTokenVerifier(cfg.Google.ClientID)
	}
	authService := auth.NewService(auth.NewRepository(pool), jwtService, auth.NewTOTP(cfg.Auth.TwoFactorIssuer), google, dispatcher,
		auth.Settings{SiteURL: cfg.Server.SiteURL, VerificationTTL: cfg.Auth.VerificationTokenTTL, ResetTTL: cfg.Auth.ResetTokenTTL}, logger)
	authHandler := auth.NewHandler(authService, logger)

	// Catalogue and ledger
	formationRepo := formations.NewRepository(pool)
	formationHandler := formations.NewHandler(formationRepo, logger)
	sessionRepo := sessions.NewRepository(pool)
	ledger := sessions.NewLedger(sessionRepo, cfg.Cache.OpenSessionsTTL, logger).WithAnnouncer(fanout)
	if stopWatch, err := ledger.InvalidateOnFeed(redisPubSub); err != nil {
		logger.Warn("open-session cache not shared across instances", zap.Error(err))
	} else {
		defer stopWatch()
	}
	sessionHandler := sessions.NewHandler(ledger, sessionRepo, logger)

	// Registrations
	registrationService := registrations.NewService(registrations.NewRepository(pool), sessionRepo, formationRepo, dispatcher,
		registrations.Options{EnforceOpenSession: cfg.Registration.EnforceOpenSession, Announcer: fanout}, logger)
	registrationHandler := registrations.NewHandler(registrationService, logger)

	contactHandler := contact.NewHandler(contact.NewService(dispatcher, cfg.Email.AdminAddress, logger), logger)
	emailLogsHandler := emaillogs.NewHandler(emailLogRepo, queue.NewQueue(rdb.Client, logger), logger)

	var uploadService *uploads.Service
	if s3Client != nil {
		uploadService = uploads.NewService(s3Client, formationRepo, logger)
	}
	uploadHandler := uploads.NewHandler(uploadService, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.OptionalJWT(jwtService))
	router.Use(middleware.Logger(logger))

	limit := middleware.RateLimit(cfg.RateLimit, rdb.Client, logger)
	authed := middleware.JWT(jwtService)
	admin := []gin.HandlerFunc{authed, middleware.RequireRole(models.RoleAdmin)}
	adminOnly := func(h gin.HandlerFunc) []gin.HandlerFunc { return append(append([]gin.HandlerFunc{}, admin...), h) }

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil || !rdb.Healthy(c.Request.Context()) {
			response.ServiceUnavailable(c, "dependencies unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Catalogue
	router.GET("/formations", formationHandler.List)
	router.GET("/formations/:id", formationHandler.Get)
	router.GET("/formations/:id/sessions", sessionHandler.ListByFormation)
	router.POST("/formations", adminOnly(formationHandler.Create)...)
	router.PATCH("/formations/:id", adminOnly(formationHandler.Update)...)
	router.POST("/formations/:id/sessions", adminOnly(sessionHandler.Create)...)
	router.POST("/formations/:id/image", adminOnly(uploadHandler.UploadImage)...)
	router.POST("/formations/:id/image/upload-url", adminOnly(uploadHandler.UploadURL)...)

	// Sessions
	router.GET("/sessions/open", sessionHandler.ListOpen)
	router.GET("/sessions/close-past-sessions", sessionHandler.ClosePast)
	router.GET("/sessions/:id", sessionHandler.Get)
	router.PATCH("/sessions/:id", adminOnly(sessionHandler.Update)...)
	router.POST("/sessions/:id/registrations", limit, registrationHandler.CreateForSession)
	router.GET("/sessions/:id/registrations", adminOnly(registrationHandler.ListBySession)...)

	// Registrations
	router.POST("/registrations", limit, registrationHandler.Create)
	router.POST("/registrations/validate-quote", limit, registrationHandler.ValidateQuote)
	router.GET("/registrations/user", registrationHandler.ListMine)
	router.GET("/registrations/:id", registrationHandler.Get)
	router.PATCH("/registrations/:id", adminOnly(registrationHandler.IssueQuote)...)

	router.POST("/contact", limit, contactHandler.Submit)

	// Auth
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limit, authHandler.Register)
		authGroup.POST("/verify-email", limit, authHandler.VerifyEmail)
		authGroup.POST("/login", limit, authHandler.Login)
		authGroup.POST("/login/2fa", limit, authHandler.LoginTwoFactor)
		authGroup.POST("/google", limit, authHandler.Google)
		authGroup.POST("/password-reset/request", limit, authHandler.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", limit, authHandler.ResetPassword)
		authGroup.GET("/me", authed, authHandler.Me)
		authGroup.PATCH("/settings", authed, authHandler.UpdateSettings)
		authGroup.POST("/2fa/setup", authed, authHandler.SetupTwoFactor)
		authGroup.POST("/2fa/enable", authed, authHandler.EnableTwoFactor)
		authGroup.POST("/2fa/disable", authed, authHandler.DisableTwoFactor)
	}
	router.GET("/users", adminOnly(authHandler.ListUsers)...)

	// Admin
	router.GET("/admin/emails", adminOnly(emailLogsHandler.List)...)
	router.POST("/admin/emails/:id/resend", adminOnly(emailLogsHandler.Resend)...)
	// WebSocket (token in query; no Authorization header required)
	router.GET("/admin/feed", realtime.ServeWs(hub, jwtService, cfg.Server.CORSAllowedOrigins, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.CORS(router, cfg.Server.CORSAllowedOrigins),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/isdelr/carshelf/internal/api"
	"github.com/isdelr/carshelf/internal/auth"
	"github.com/isdelr/carshelf/internal/config"
	"github.com/isdelr/carshelf/internal/database"
	"github.com/isdelr/carshelf/internal/enrichment"
	"github.com/isdelr/carshelf/internal/logger"
	"github.com/isdelr/carshelf/internal/metrics"
	"github.com/isdelr/carshelf/internal/monitoring"
	"github.com/isdelr/carshelf/internal/notify"
	"github.com/isdelr/carshelf/internal/services"
	"github.com/isdelr/carshelf/internal/session"
	"github.com/isdelr/carshelf/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.Production)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	appMetrics := metrics.New()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db, hub)
	userService := services.NewUserService(db)
	itemService := services.NewItemService(db, eventService)

	dispatcher := notify.NewDispatcher(newMailer(cfg.Mail), notify.DispatcherOptions{
		Timeout:    cfg.Mail.Timeout,
		MaxRetries: cfg.Mail.MaxRetries,
		Metrics:    appMetrics,
		OnFailure: func(msg notify.Message, err error) {
			text := fmt.Sprintf("Welcome email to %s could not be delivered: %v", msg.To, err)
			_ = eventService.CreateEvent(context.Background(), "notify.fail", "warn", text, nil)
		},
	})

	accountService := services.NewAccountService(userService, auth.NewBcryptHasher(cfg.BcryptCost), services.AccountServiceOptions{
		Notifier:   dispatcher,
		Events:     eventService,
		Metrics:    appMetrics,
		Attachment: cfg.Mail.Attachment,
	})

	if cfg.BootstrapAdmin.Enabled() {
		seed := cfg.BootstrapAdmin
		if err := accountService.EnsureAdmin(context.Background(), seed.Username, seed.Email, seed.Password); err != nil {
			log.Fatal().Err(err).Str("email", seed.Email).Msg("Failed to create bootstrap admin")
		}
	}

	// Set up sessions
	sessionKey := []byte(cfg.SessionSecret)
	if len(sessionKey) == 0 {
		sessionKey = securecookie.GenerateRandomKey(32)
		log.Warn().Msg("SESSION_SECRET is not set; using a random key, sessions will not survive a restart")
	}
	sessionStore := session.NewStore(cfg.SessionIdleTimeout, sessionKey)
	sessionStore.Options.Secure = cfg.Production

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(sessionStore, cfg.SessionSweepSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure scheduler")
	}
	go scheduler.Run()

	enricher := enrichment.NewClient(cfg.Enrichment.BaseURL, cfg.Enrichment.Query, cfg.Enrichment.Timeout, appMetrics)
	feeds := enrichment.NewFeedClient(enrichment.FeedConfig{
		JokeURL:    cfg.Feeds.JokeURL,
		PictureURL: cfg.Feeds.PictureURL,
		PictureKey: cfg.Feeds.PictureKey,
		Timeout:    cfg.Feeds.Timeout,
	}, appMetrics)

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Accounts:        accountService,
		Items:           itemService,
		Events:          eventService,
		Sessions:        session.NewManager(sessionStore),
		Enricher:        enricher,
		Feeds:           feeds,
		Hub:             hub,
		Metrics:         appMetrics,
		Health:          db,
		AllowedOrigins:  cfg.CORSAllowedOrigin,
		SignupAllowRole: cfg.SignupAllowRole,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(ctx)

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	if err := dispatcher.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("Pending notifications abandoned")
	}

	log.Info().Msg("Server exiting")
}

func newMailer(cfg config.MailConfig) notify.Mailer {
	if cfg.Host == "" {
		log.Warn().Msg("MAIL_HOST is not set; welcome emails will only be logged")
		return notify.LogMailer{}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}

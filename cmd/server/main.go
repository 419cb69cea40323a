package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/athlete-log/internal/api"
	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/events"
	"github.com/dom/athlete-log/internal/repository/postgres"
	"github.com/dom/athlete-log/internal/service"
	"github.com/dom/athlete-log/internal/strava"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := newLogger(cfg)
	defer log.Sync()

	// Initialize database
	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}
	db, err := postgres.NewConnection(cfg.DatabaseURL, logLevel)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Strava API client
	client := strava.NewClient(strava.Config{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		RedirectURI:  cfg.StravaRedirectURI,
		APIBaseURL:   cfg.StravaBaseURL,
		OAuthBaseURL: cfg.StravaAuthURL,
		Timeout:      cfg.StravaHTTPTimeout,
	})
	if !cfg.StravaConfigured() {
		log.Warn("STRAVA_CLIENT_ID or STRAVA_CLIENT_SECRET not set, Strava sync disabled")
	}

	// Activity events
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaEnabled() {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaActivityTopic)
		log.Info("publishing activity events",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaActivityTopic),
		)
	}
	defer publisher.Close()

	// Initialize services
	services := service.NewServices(repos, cfg, client, publisher, log)

	purged, err := services.Auth.PurgeExpiredSessions(context.Background())
	if err != nil {
		log.Warn("failed to purge expired sessions", zap.Error(err))
	} else if purged > 0 {
		log.Info("purged expired sessions", zap.Int64("count", purged))
	}

	// Initialize router
	router := api.NewRouter(services, cfg, log)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.StravaHTTPTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsDevelopment() {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	return log
}

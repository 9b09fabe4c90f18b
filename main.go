package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"medbot-server/internal/accounts"
	"medbot-server/internal/appointments"
	"medbot-server/internal/classifier"
	"medbot-server/internal/config"
	"medbot-server/internal/conversation"
	"medbot-server/internal/directory"
	"medbot-server/internal/history"
	"medbot-server/internal/logging"
	"medbot-server/internal/metrics"
	"medbot-server/internal/middleware"
	"medbot-server/internal/models"
	"medbot-server/internal/routes"
	"medbot-server/internal/specialty"
	"medbot-server/internal/store"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	apptStore, histStore, err := openStores(cfg)
	if err != nil {
		return err
	}

	dir, err := directory.Open(ctx, directory.NewFileRepository(cfg.Data.DoctorsPath), logger.With("component", "directory"))
	if err != nil {
		return fmt.Errorf("load doctor directory: %w", err)
	}
	resolver := specialty.Default()
	ranker := directory.NewRanker(dir, resolver, m)

	corpus, err := classifier.LoadCorpus(cfg.Data.IntentsPath, cfg.Data.FollowUpsPath)
	if err != nil {
		return fmt.Errorf("load intents: %w", err)
	}
	adapter := classifier.NewAdapter(corpus, nil, logger.With("component", "classifier"))

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()
	conversations := conversation.NewService(conversation.NewController(adapter), sessions, logger.With("component", "conversation"), m)

	mgr := appointments.NewManager(apptStore, histStore, logger.With("component", "appointments"), m)
	hist := history.NewService(mgr, histStore)

	accts, err := accounts.NewRegistry(accounts.Credentials{
		AdminPassword:   cfg.Credentials.AdminPassword,
		PatientPassword: cfg.Credentials.PatientPassword,
		DoctorPassword:  cfg.Credentials.DoctorPassword,
		BcryptCost:      cfg.Credentials.BcryptCost,
	}, dir.List(), logger.With("component", "accounts"))
	if err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.With("component", "http")))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Services{
		Accounts:      accts,
		Appointments:  mgr,
		Conversations: conversations,
		Directory:     dir,
		Ranker:        ranker,
		Resolver:      resolver,
		History:       hist,
		Logger:        logger,
		Gatherer:      registry,
	}, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "store", cfg.Storage.Driver, "sessions", cfg.Sessions.Backend, "doctors", dir.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

// openStores picks the appointment and history stores for the configured
// driver.
func openStores(cfg *config.Config) (store.AppointmentStore, store.HistoryStore, error) {
	if cfg.Storage.Driver == "csv" {
		appts, err := store.NewCSVAppointmentStore(cfg.Storage.AppointmentsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open appointments csv: %w", err)
		}
		hist, err := store.NewCSVHistoryStore(cfg.Storage.HistoryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open history csv: %w", err)
		}
		return appts, hist, nil
	}

	db, err := models.InitDB(models.DatabaseConfig{Driver: cfg.Storage.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return store.NewGormAppointmentStore(db), store.NewGormHistoryStore(db), nil
}

// openSessions returns the conversation session store and its cleanup.
func openSessions(ctx context.Context, cfg *config.Config) (conversation.SessionStore, func(), error) {
	if cfg.Sessions.Backend != "redis" {
		return conversation.NewMemorySessionStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Sessions.RedisAddr,
		Password: cfg.Sessions.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Sessions.RedisAddr, err)
	}
	return conversation.NewRedisSessionStore(client, cfg.Sessions.TTL, nil), func() { _ = client.Close() }, nil
}

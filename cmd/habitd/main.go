package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/handler/http"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/repository"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/config"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/services"
)

func main() {
	startTime := time.Now()

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		log.Fatalf("Critical: invalid configuration: %v", err)
	}

	ctx := context.Background()

	var (
		db        *sqlx.DB
		habitRepo domain.HabitRepository
		userRepo  domain.UserRepository
	)

	if cfg.Database.Enabled() {
		log.Println("Connecting to database...")

		db, err = sqlx.Connect("pgx", cfg.Database.DSN())
		if err != nil {
			log.Fatalf("Critical: Failed to connect to database: %v", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := repository.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("Critical: %v", err)
		}
		log.Println("Database connected successfully.")

		habitRepo = repository.NewPostgresHabitRepository(db)
		userRepo = repository.NewPostgresUserRepository(db)
	} else {
		log.Println("No database configured, keeping data in memory.")
		habitRepo = repository.NewInMemoryHabitRepository()
		userRepo = repository.NewInMemoryUserRepository()
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cache.NewRedisClient(ctx, cache.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalf("Critical: %v", err)
		}
		defer rdb.Close()

		habitRepo = repository.NewCachedHabitRepository(habitRepo, rdb)
		log.Println("Redis connected, habit list cache and rate limiter enabled.")
	}

	tokenService := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL, userRepo)

	gin.SetMode(gin.ReleaseMode)
	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:  adapterHTTP.NewAuthHandler(services.NewAuthService(userRepo), tokenService),
		HabitHandler: adapterHTTP.NewHabitHandler(services.NewHabitService(habitRepo)),
		StatsHandler: adapterHTTP.NewStatsHandler(services.NewStatsService(habitRepo)),
		TokenService: tokenService,
		DB:           db,
		Redis:        rdb,
		Gatherer:     prometheus.DefaultGatherer,
		RateLimit:    cfg.RateLimitPerMin,
		StartTime:    startTime,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Trilho reference service running on http://localhost:%s/api", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}

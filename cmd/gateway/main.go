package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/diogenesmendes01/email-gateway/internal/api"
	"github.com/diogenesmendes01/email-gateway/internal/bounce"
	"github.com/diogenesmendes01/email-gateway/internal/config"
	"github.com/diogenesmendes01/email-gateway/internal/domain"
	"github.com/diogenesmendes01/email-gateway/internal/pkg/distlock"
	"github.com/diogenesmendes01/email-gateway/internal/queue"
	"github.com/diogenesmendes01/email-gateway/internal/ratelimit"
	"github.com/diogenesmendes01/email-gateway/internal/repository/postgres"
	"github.com/diogenesmendes01/email-gateway/internal/sender"
	"github.com/diogenesmendes01/email-gateway/internal/suppression"
	"github.com/diogenesmendes01/email-gateway/internal/warmup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("[gateway] load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("[gateway] open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		log.Fatalf("[gateway] ping database: %v", err)
	}
	cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	suppressions := suppression.NewService(postgres.NewSuppressionRepo(db))
	warmupSvc := warmup.NewService(postgres.NewWarmupRepo(db), domain.WarmupConfig{
		StartVolume:    cfg.Warmup.StartVolume,
		MaxDailyVolume: cfg.Warmup.MaxDailyVolume,
		DailyIncrease:  cfg.Warmup.DailyIncrease,
		MaxDays:        cfg.Warmup.MaxDays,
	}, nil)

	limiter := ratelimit.New(rdb,
		ratelimit.WithLimits(domainLimits(cfg.RateLimit), ratelimit.Limit{
			PerSecond: cfg.RateLimit.DefaultPerSecond,
			PerMinute: cfg.RateLimit.DefaultPerMinute,
		}),
		ratelimit.WithStoreTimeout(time.Duration(cfg.RateLimit.StoreTimeoutMs)*time.Millisecond),
	)

	jobs := queue.NewRedisQueue(rdb)
	processor := bounce.NewProcessor(suppressions, jobs)
	gate := sender.NewGate(suppressions, warmupSvc, limiter, rdb, nil)

	sweepLock := distlock.NewMutex(rdb, "warmup-sweep", 3*time.Minute)
	sweeper := warmup.NewSweeper(warmupSvc, cfg.Warmup.SweepInterval(), sweepLock)
	sweeper.Start()
	defer sweeper.Stop()

	server := api.NewServer(api.Options{
		Addr:           cfg.Server.Addr(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}, api.Services{
		Processor:    processor,
		Gate:         gate,
		Suppressions: suppressions,
		Warmup:       warmupSvc,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Printf("[gateway] received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("[gateway] server error: %v", err)
		}
		return
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("[gateway] shutdown: %v", err)
	}
}

// domainLimits merges the configured per-domain tiers over the built-in
// webmail table. Config entries win.
func domainLimits(cfg config.RateLimitConfig) map[string]ratelimit.Limit {
	limits := make(map[string]ratelimit.Limit, len(ratelimit.DefaultDomainLimits)+len(cfg.Domains))
	for d, l := range ratelimit.DefaultDomainLimits {
		limits[d] = l
	}
	for d, l := range cfg.Domains {
		limits[d] = ratelimit.Limit{PerSecond: l.PerSecond, PerMinute: l.PerMinute}
	}
	return limits
}

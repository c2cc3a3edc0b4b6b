// Command rk-server is the board persistence service: the REST API over SQLite with an
// optional Redis read cache.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"kanban-cli/internal/logging"
	"kanban-cli/internal/server"
	"kanban-cli/internal/store"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	level := "info"
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		level = "debug"
	}
	logger, err := logging.New(level, os.Stderr, true)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	dbPath := envOr("DATABASE_PATH", filepath.Join("data", "kanban.db"))
	listenAddr := envOr("LISTEN_ADDR", ":3001")
	ttl := 30 * time.Second
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			logger.Fatalf("invalid CACHE_TTL %q", v)
		}
		ttl = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, dbPath)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer db.Close()

	var rc *redis.Client
	if url := os.Getenv("REDIS_URL"); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			logger.Fatalf("invalid REDIS_URL: %v", err)
		}
		rc = redis.NewClient(opts)
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable; serving without cache until it recovers")
		}
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := server.New(store.NewCache(db, rc, ttl, logger), logger, reg)

	go func() {
		logger.WithFields(log.Fields{"addr": listenAddr, "db": dbPath, "redis": rc != nil}).Info("listening")
		if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// Command server runs the cinema management API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-management-api/internal/audit"
	"github.com/iliyamo/cinema-management-api/internal/config"
	"github.com/iliyamo/cinema-management-api/internal/integrity"
	"github.com/iliyamo/cinema-management-api/internal/queue"
	"github.com/iliyamo/cinema-management-api/internal/router"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("godotenv: %v", err)
	}

	logger := log.New("cinema_api")
	logger.SetLevel(log.INFO)

	cfg := config.Load()
	if cfg.Env == "dev" {
		logger.SetLevel(log.DEBUG)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer st.Close(context.Background())

	rdb := config.NewRedisClient(ctx) // nil when redis is not reachable
	if rdb == nil {
		logger.Warn("redis unavailable: report cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var locks integrity.Locker = integrity.NewLocalLocker()
	if cfg.LockBackend == "redis" {
		if rdb != nil {
			locks = integrity.NewRedisLocker(rdb, cfg.LockTTL, logger)
		} else {
			logger.Warn("LOCK_BACKEND=redis but redis is unavailable, using process-local locks")
		}
	}

	files := audit.NewFileSink(cfg.LogsDir)
	files.Mirror = os.Stdout
	var sink audit.Sink = files
	if cfg.AuditTransport == "amqp" {
		pub := queue.NewPublisher(cfg.RabbitURL, logger)
		defer pub.Close()
		sink = audit.Fallback(pub, files)
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, files, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("audit consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	router.Setup(e, router.Deps{
		Cfg:       cfg,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Store:     st,
		Manager:   integrity.NewManager(st, locks, logger),
		Sink:      sink,
		Redis:     rdb,
	})

	addr := ":" + cfg.Port
	logger.Infof("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreBackend)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/leonardcser/objcache-mcp/internal/cache"
	"github.com/leonardcser/objcache-mcp/internal/config"
	"github.com/leonardcser/objcache-mcp/internal/logger"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logger.Errorf("open store: %v", err)
		panic(err)
	}
	defer store.Close()

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(cfg.Socket), 0o755)
	_ = os.Remove(cfg.Socket)

	l, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		logger.Errorf("listen on %s: %v", cfg.Socket, err)
		panic(err)
	}
	_ = os.Chmod(cfg.Socket, 0o600)
	logger.Infof("Cache daemon serving %s on %s", store.Path(), cfg.Socket)

	if cfg.SweepInterval > 0 {
		go sweepEvery(ctx, store, cfg.SweepInterval)
	}
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	if err := cache.Serve(l, store); err != nil {
		logger.Errorf("serve: %v", err)
	}
	logger.Infof("Cache daemon stopped")
}

func sweepEvery(ctx context.Context, store *cache.Store, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := store.CleanupExpired(ctx); err != nil {
				logger.Warnf("periodic sweep failed: %v", err)
			}
		}
	}
}

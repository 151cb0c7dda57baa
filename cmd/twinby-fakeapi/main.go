package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tinkering/twinby/internal/fakeapi"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	seed := flag.Bool("seed", true, "create demo accounts and conversations")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	fake := fakeapi.New(fakeapi.Options{Logger: logger})
	if *seed {
		if err := fake.SeedDemo(); err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("fake API listening", zap.String("addr", *addr), zap.Bool("seeded", *seed))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

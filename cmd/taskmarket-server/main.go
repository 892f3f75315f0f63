package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc/pool"

	server "github.com/kazz187/taskmarket/internal"
	"github.com/kazz187/taskmarket/internal/api"
	"github.com/kazz187/taskmarket/internal/chat"
	"github.com/kazz187/taskmarket/internal/config"
	"github.com/kazz187/taskmarket/internal/eventbus"
	"github.com/kazz187/taskmarket/internal/store/kvstore"
	"github.com/kazz187/taskmarket/internal/store/pgstore"
	"github.com/kazz187/taskmarket/internal/workflow"
	"github.com/kazz187/taskmarket/pkg/clog"
	"github.com/kazz187/taskmarket/pkg/panicerr"
	"github.com/kazz187/taskmarket/pkg/pgdb"
	"github.com/kazz187/taskmarket/pkg/storage"
)

func main() {
	// A missing .env is fine; the environment may be set by the platform.
	_ = godotenv.Load()

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.IsLocal() {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, closeStore, err := openStore(ctx, &env.StorageEnv)
	if err != nil {
		slog.Error("failed to open store", "type", env.StorageEnv.Type, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	bus := eventbus.New()
	engine := workflow.NewEngine(store)
	srv := server.NewServer(env, api.NewHandler(engine, bus))
	chatDispatcher := chat.NewDispatcher(bus, chat.LogOpener{})

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(panicerr.Component("chat dispatcher", func(ctx context.Context) error {
		chatDispatcher.Start(ctx)
		return nil
	}))
	p.Go(panicerr.Component("http server", func(ctx context.Context) error {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}))
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := p.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, env *config.StorageEnv) (workflow.Store, func(), error) {
	switch env.Type {
	case config.StoragePostgres:
		pgPool, err := pgdb.Connect(ctx, env.DatabaseURL, env.DatabaseMaxConns)
		if err != nil {
			return nil, nil, err
		}
		s := pgstore.New(pgPool)
		if err := s.EnsureSchema(ctx); err != nil {
			pgPool.Close()
			return nil, nil, err
		}
		return s, pgPool.Close, nil
	case config.StorageS3:
		blobs, err := storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.New(blobs), func() {}, nil
	default:
		blobs, err := storage.NewLocalStorage(env.BaseDir)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.New(blobs), func() {}, nil
	}
}

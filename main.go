package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frontyard/backend/internal/client"
	"github.com/frontyard/backend/internal/config"
	"github.com/frontyard/backend/internal/db"
	"github.com/frontyard/backend/internal/db/memory"
	"github.com/frontyard/backend/internal/db/mongodb"
	"github.com/frontyard/backend/internal/handler"
	"github.com/frontyard/backend/internal/logging"
	"github.com/frontyard/backend/internal/service"
	"github.com/frontyard/backend/internal/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Store is what every STORE_DRIVER backend provides.
type Store interface {
	service.UserRepository
	service.PostRepository
}

// @title frontyard blog API
// @version 1.0
// @description Posts, image upload and JWT session endpoints.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, fellBack, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	if fellBack {
		log.Warn("unknown LOG_LEVEL, falling back to info", zap.String("level", cfg.Log.Level))
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	s3Client, err := client.NewS3Client(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	tokens, err := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL, cfg.Auth.JWTRefreshTTL)
	if err != nil {
		return err
	}

	authService, err := service.NewAuthService(store, tokens, cfg.Auth, log)
	if err != nil {
		return err
	}
	postService := service.NewPostService(store, log)
	imageService := service.NewImageService(s3Client, cfg.Storage.MaxUploadSize, log)

	gin.SetMode(cfg.Server.GinMode)
	router := handler.NewRouter(handler.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Posts:  handler.NewPostHandler(postService),
		Images: handler.NewImageHandler(imageService),
	}, handler.AuthMiddleware(authService), cfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := &db.Postgres{Pool: pool}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil

	case config.DriverMongo:
		mg, err := mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		if err := mg.EnsureIndexes(ctx); err != nil {
			_ = mg.Close(context.Background())
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := mg.Close(closeCtx); err != nil {
				log.Warn("mongo disconnect failed", zap.Error(err))
			}
		}
		return mg, closeFn, nil

	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

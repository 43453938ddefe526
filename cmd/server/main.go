package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgallion1/docread/internal/api"
	"github.com/dgallion1/docread/internal/config"
	"github.com/dgallion1/docread/internal/docstore"
	"github.com/dgallion1/docread/internal/imagestore"
	"github.com/dgallion1/docread/internal/materialize"
	"github.com/dgallion1/docread/internal/parser"
	"github.com/dgallion1/docread/internal/pathstore"
	"github.com/dgallion1/docread/internal/pipeline"
)

type imageBackend interface {
	imagestore.Store
	imagestore.Getter
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []io.Closer

	images, c, err := openImageStore(cfg)
	if err != nil {
		log.Error("open image store", "backend", cfg.ImageStore, "error", err)
		os.Exit(1)
	}
	if c != nil {
		closers = append(closers, c)
	}

	repo, c, err := openDocStore(ctx, cfg)
	if err != nil {
		log.Error("open document store", "backend", cfg.DocStore, "error", err)
		os.Exit(1)
	}
	if c != nil {
		closers = append(closers, c)
	}

	opts := parser.Options{
		Materializer:        materialize.New(images),
		Log:                 log,
		MaxConcurrentImages: cfg.MaxConcurrentImages,
	}
	orch := pipeline.NewOrchestrator(cfg, repo, opts, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, images, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn("close", "error", err)
			}
		}
	}()

	log.Info("starting docread",
		"port", cfg.Port,
		"image_store", cfg.ImageStore,
		"doc_store", cfg.DocStore,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openImageStore(cfg config.Config) (imageBackend, io.Closer, error) {
	switch cfg.ImageStore {
	case config.ImageStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return imagestore.NewRedisStore(client), client, nil
	case config.ImageStoreSQLite:
		db, err := imagestore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return imagestore.NewSQLiteStore(db), db, nil
	case config.ImageStoreFile, "":
		return imagestore.NewFileStore(cfg.ImageDir), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}

func openDocStore(ctx context.Context, cfg config.Config) (docstore.Repository, io.Closer, error) {
	switch cfg.DocStore {
	case config.DocStorePostgres:
		db, err := docstore.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo := docstore.NewPostgresRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	case config.DocStorePathstore:
		client := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		return docstore.NewPathstoreRepo(client, ""), closerFunc(client.Close), nil
	case config.DocStoreMemory, "":
		return docstore.NewMemoryRepo(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown document store %q", cfg.DocStore)
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gogpu/gg"

	"MapReveal/internal/config"
	"MapReveal/internal/library"
	"MapReveal/internal/store/sqlite"
)

const databaseName = "library.db"

// env is what every command needs: config, logger and the library.
type env struct {
	cfg   *config.Config
	log   *slog.Logger
	lib   *library.Library
	store *sqlite.Client
}

// loadConfig reads the config file and installs the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "gg"))
	return cfg, logger, nil
}

// openEnv loads the config and opens the library in the data directory.
// Failing to create the data directory is fatal.
func openEnv(ctx context.Context) (*env, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dir, err := cfg.EnsureDataDir()
	if err != nil {
		return nil, err
	}
	st, err := sqlite.New(ctx, filepath.Join(dir, databaseName))
	if err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close(ctx)
		return nil, err
	}
	logger.Debug("opened library", "dir", dir)
	return &env{
		cfg:   cfg,
		log:   logger,
		lib:   library.New(dir, st, logger),
		store: st,
	}, nil
}

func (e *env) Close(ctx context.Context) error {
	return e.store.Close(ctx)
}

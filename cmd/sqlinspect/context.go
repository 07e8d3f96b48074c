package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sqlinspect "github.com/shakram02/go-sql-inspect"
	"github.com/shakram02/go-sql-inspect/config"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFromContext retrieves the config stored by the root command.
func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// openDB connects using the configuration stored in ctx. Callers close the DB.
func openDB(ctx context.Context) (*sqlinspect.DB, *config.Config, error) {
	cfg, err := configFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	desc, err := cfg.Database.Descriptor()
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}

	db, err := sqlinspect.Open(ctx, desc, cfg.Database.OpenOptions(slog.Default())...)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

// withQueryTimeout bounds a single command by query.timeout.
func withQueryTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Query.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Query.Timeout)
}

package repository

import (
	"context"
	"fmt"

	"github.com/okian/smartart/internal/config"
)

// Open builds the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (Store, error) {
	opts = append([]Option{WithWriteTimeout(cfg.StoreWriteTimeout())}, opts...)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath, opts...)
	case config.StoreBadger:
		return NewBadgerStore(ctx, cfg.BadgerDir, opts...)
	case config.StoreInflux:
		return NewInfluxStore(ctx, InfluxConfig{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		}, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}
}

// Package store persists the latest ResultBundle of each session.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/db"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Load when the session has no bundle.
var ErrNotFound = errors.New("no results stored for session")

// Store keeps one bundle per session. Save replaces whatever the session held before.
type Store interface {
	Save(ctx context.Context, session string, b *models.ResultBundle) error
	Load(ctx context.Context, session string) (*models.ResultBundle, error)
	Clear(ctx context.Context, session string) error
	Close() error
}

// Open builds the backend named by cfg.Kind.
func Open(cfg models.StoreConfig) (Store, error) {
	switch cfg.Kind {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		return NewSQLStore(database), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		return NewRedisStore(client, cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

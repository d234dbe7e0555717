package store

import (
	"context"
	"errors"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/db"
)

// SQLStore persists bundles in the SQLite session database.
type SQLStore struct {
	db *db.DB
}

func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database}
}

func (s *SQLStore) Save(ctx context.Context, session string, b *models.ResultBundle) error {
	return s.db.SaveBundle(ctx, session, b)
}

func (s *SQLStore) Load(ctx context.Context, session string) (*models.ResultBundle, error) {
	b, err := s.db.LoadBundle(ctx, session)
	if errors.Is(err, db.ErrBundleNotFound) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *SQLStore) Clear(ctx context.Context, session string) error {
	return s.db.DeleteBundle(ctx, session)
}

// Sessions lists stored sessions, most recent first.
func (s *SQLStore) Sessions(ctx context.Context, limit int) ([]db.SessionInfo, error) {
	return s.db.ListSessions(ctx, limit)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

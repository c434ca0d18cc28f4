package database

import (
	"context"

	"github.com/nao1215/docscrawl/internal/model"
)

// StateStore adapts a CrawlDB to the checkpoint.Store interface.
type StateStore struct {
	db *CrawlDB
}

// NewStateStore returns a checkpoint store backed by db.
func NewStateStore(db *CrawlDB) *StateStore {
	return &StateStore{db: db}
}

// Save implements checkpoint.Store.
func (s *StateStore) Save(ctx context.Context, state *model.CrawlState) error {
	return s.db.SaveState(ctx, state)
}

// Load implements checkpoint.Store.
func (s *StateStore) Load(ctx context.Context) (*model.CrawlState, error) {
	return s.db.LoadState(ctx)
}

// Clear implements checkpoint.Store.
func (s *StateStore) Clear(ctx context.Context) error {
	return s.db.ClearState(ctx)
}

package checkpoint

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/docscrawl/internal/model"
)

// ErrCorruptSnapshot is returned by Load when a snapshot exists but cannot
// be decoded.
var ErrCorruptSnapshot = errors.New("checkpoint snapshot is corrupt")

// Store is the checkpoint persistence port.
type Store interface {
	// Save writes the full state, replacing any prior snapshot.
	Save(ctx context.Context, state *model.CrawlState) error

	// Load returns the most recent snapshot, or (nil, nil) if none exists.
	Load(ctx context.Context) (*model.CrawlState, error)

	// Clear discards the snapshot. Clearing an absent snapshot is not an error.
	Clear(ctx context.Context) error
}

// LoadOrEmpty loads the latest snapshot from store. A missing snapshot
// yields a fresh empty state. An unreadable snapshot is logged as a warning
// and also yields a fresh empty state, so the caller never fails because of
// prior progress it cannot read.
func LoadOrEmpty(ctx context.Context, store Store, logger *slog.Logger) *model.CrawlState {
	if logger == nil {
		logger = slog.Default()
	}

	state, err := store.Load(ctx)
	if err != nil {
		logger.Warn("failed to load checkpoint, starting without prior progress", "error", err)
		return model.NewCrawlState()
	}
	if state == nil {
		logger.Debug("no checkpoint found")
		return model.NewCrawlState()
	}

	state.Normalize()
	logger.Debug("checkpoint loaded",
		"visited", len(state.Visited),
		"frontier", len(state.Frontier),
		"batches", state.BatchCounter,
	)
	return state
}

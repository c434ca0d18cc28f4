package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nao1215/docscrawl/internal/model"
)

// sampleState returns a reachable, non-trivial crawl state.
func sampleState() *model.CrawlState {
	return &model.CrawlState{
		Visited: []string{
			"https://example.com/docs/index.html",
			"https://example.com/docs/Components/Camera/DJICamera.html",
		},
		Frontier:       []string{"https://example.com/docs/Components/Gimbal/DJIGimbal.html"},
		BatchCounter:   3,
		CategoryCounts: map[string]int{"general": 1, "camera": 1},
		MethodCounts:   map[string]int{"startShootPhoto": 1, "setMode": 2},
		Failed:         map[string]string{"https://example.com/docs/broken.html": "http-status"},
	}
}

// stores returns every in-package Store implementation under test.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "state", DefaultFileName)),
		"memory": NewMemoryStore(),
	}
}

// TestStoreRoundTrip tests load(save(state)) == state for every store.
func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			want := sampleState()

			if err := store.Save(ctx, want); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestStoreOverwrite tests that Save replaces the prior snapshot.
func TestStoreOverwrite(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			first := sampleState()
			second := sampleState()
			second.BatchCounter = 9
			second.Frontier = nil

			if err := store.Save(ctx, first); err != nil {
				t.Fatalf("first save failed: %v", err)
			}
			if err := store.Save(ctx, second); err != nil {
				t.Fatalf("second save failed: %v", err)
			}

			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if got.BatchCounter != 9 || len(got.Frontier) != 0 {
				t.Errorf("expected second snapshot, got %+v", got)
			}
		})
	}
}

// TestStoreMissing tests that an absent snapshot loads as (nil, nil).
func TestStoreMissing(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != nil {
				t.Errorf("expected nil state, got %+v", got)
			}
		})
	}
}

// TestStoreClear tests that Clear discards the snapshot and is idempotent.
func TestStoreClear(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			if err := store.Save(ctx, sampleState()); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("clear failed: %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("second clear failed: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil || got != nil {
				t.Errorf("expected (nil, nil) after clear, got (%+v, %v)", got, err)
			}
		})
	}
}

// TestStoreCancelledContext tests that stores honour cancellation.
func TestStoreCancelledContext(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if err := store.Save(ctx, sampleState()); !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled from Save, got %v", err)
			}
		})
	}
}

// TestFileStoreLeavesNoTempFiles tests that Save cleans up after rename.
func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, DefaultFileName))
	for range 3 {
		if err := store.Save(context.Background(), sampleState()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != DefaultFileName {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only %s, got %v", DefaultFileName, names)
	}
}

// TestFileStoreCorrupt tests that a corrupt file is reported as such.
func TestFileStoreCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	_, err := NewFileStore(path).Load(context.Background())
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("expected ErrCorruptSnapshot, got %v", err)
	}
}

// TestLoadOrEmpty tests the warn-and-start-fresh policy.
func TestLoadOrEmpty(t *testing.T) {
	t.Parallel()

	t.Run("missing snapshot gives empty state", func(t *testing.T) {
		t.Parallel()

		state := LoadOrEmpty(context.Background(), NewMemoryStore(), nil)
		if !state.IsEmpty() {
			t.Errorf("expected empty state, got %+v", state)
		}
	})

	t.Run("corrupt snapshot gives empty state and warns", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultFileName)
		if err := os.WriteFile(path, []byte("garbage"), 0600); err != nil {
			t.Fatalf("failed to write corrupt file: %v", err)
		}

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		state := LoadOrEmpty(context.Background(), NewFileStore(path), logger)
		if !state.IsEmpty() {
			t.Errorf("expected empty state, got %+v", state)
		}
		if !strings.Contains(buf.String(), "level=WARN") {
			t.Errorf("expected warning in log, got %q", buf.String())
		}
	})

	t.Run("existing snapshot is returned normalized", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		saved := sampleState()
		saved.MethodCounts = nil
		if err := store.Save(context.Background(), saved); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		state := LoadOrEmpty(context.Background(), store, nil)
		if len(state.Visited) != 2 {
			t.Errorf("expected 2 visited, got %d", len(state.Visited))
		}
		if state.MethodCounts == nil {
			t.Error("expected method counts to be allocated")
		}
	})
}

// TestMemoryStoreIsolation tests that stored snapshots are copies.
func TestMemoryStoreIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	state := sampleState()
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	state.Visited[0] = "mutated"

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Visited[0] == "mutated" {
		t.Error("expected stored snapshot to be isolated from caller")
	}
	if store.Saves() != 1 {
		t.Errorf("expected 1 save, got %d", store.Saves())
	}
}

package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Joseph-Rai/translationapis/internal/config"
	"github.com/Joseph-Rai/translationapis/internal/storage"
	"github.com/Joseph-Rai/translationapis/internal/storage/memory"
	"github.com/Joseph-Rai/translationapis/internal/storage/sqlite"
)

func TestOpenStore(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		store, err := openStore(config.StorageConfig{Type: "none"})
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		if store != nil {
			t.Errorf("expected nil store, got %T", store)
		}
	})

	t.Run("memory", func(t *testing.T) {
		store, err := openStore(config.StorageConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		if _, ok := store.(*memory.Store); !ok {
			t.Errorf("store = %T, want *memory.Store", store)
		}
	})

	t.Run("sqlite creates directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "refinements.db")
		store, err := openStore(config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{Path: path}})
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		defer store.Close()

		if _, ok := store.(*sqlite.Store); !ok {
			t.Fatalf("store = %T, want *sqlite.Store", store)
		}
		if err := store.Save(context.Background(), &storage.Refinement{ID: "r1", TenantID: "acme", Status: storage.StatusRefined}); err != nil {
			t.Errorf("Save() error = %v", err)
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

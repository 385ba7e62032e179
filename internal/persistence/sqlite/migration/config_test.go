package migration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSQLiteConfig_ValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*SQLiteConfig) {}},
		{name: "empty dsn", mutate: func(c *SQLiteConfig) { c.DSN = "" }, wantErr: "DSN"},
		{name: "negative busy timeout", mutate: func(c *SQLiteConfig) { c.BusyTimeout = -time.Second }, wantErr: "BusyTimeout"},
		{name: "bad journal mode", mutate: func(c *SQLiteConfig) { c.JournalMode = "FAST" }, wantErr: "journal mode"},
		{name: "lower case journal mode", mutate: func(c *SQLiteConfig) { c.JournalMode = "wal" }},
		{name: "bad synchronous mode", mutate: func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, wantErr: "synchronous"},
		{name: "negative pool size", mutate: func(c *SQLiteConfig) { c.MaxOpenConns = -1 }, wantErr: "MaxOpenConns"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := DefaultSQLiteConfig("data/officehours.db")
			tt.mutate(&config)
			err := NewConnectionManager(config).ValidateConfig()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConnectionManager_GetConnectionAppliesPragmas(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "officehours.db")
	db, err := NewConnectionManager(DefaultSQLiteConfig(path)).GetConnection()
	if err != nil {
		t.Fatalf("GetConnection returned error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	var foreignKeys int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys); err != nil || foreignKeys != 1 {
		t.Fatalf("expected foreign keys enabled, got %d, %v", foreignKeys, err)
	}
	var journal string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal); err != nil || !strings.EqualFold(journal, "wal") {
		t.Fatalf("expected WAL journal, got %q, %v", journal, err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/config"
)

func testConfig(storage, dsn string) config.Config {
	cfg := config.Default()
	cfg.Storage = storage
	cfg.SQLiteDSN = dsn
	cfg.BootstrapAdminID = "admin"
	cfg.BootstrapAdminName = "Admin"
	cfg.BootstrapAdminEmail = "admin@example.com"
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time {
	return time.Date(2026, time.November, 2, 9, 0, 0, 0, time.UTC)
}

func issueBearer(t *testing.T, srv *server, userID string) string {
	t.Helper()
	issued, err := srv.tokens.IssueToken(context.Background(), application.IssueTokenParams{
		Principal: application.Principal{UserID: userID, IsAdmin: true},
		Label:     "test",
	})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return issued.Bearer
}

func TestNewServerServesAuthenticatedRequests(t *testing.T) {
	t.Parallel()

	srv, err := newServer(context.Background(), testConfig(config.StorageMemory, ""), fixedNow, discardLogger())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	bearer := issueBearer(t, srv, "admin")

	tests := []struct {
		name   string
		path   string
		bearer string
		want   int
	}{
		{name: "health is public", path: "/healthz", want: http.StatusOK},
		{name: "public events", path: "/public/events?start=2026-11-01T00:00:00Z&end=2026-12-01T00:00:00Z", want: http.StatusOK},
		{name: "me requires token", path: "/me", want: http.StatusUnauthorized},
		{name: "me with bad token", path: "/me", bearer: "nope", want: http.StatusUnauthorized},
		{name: "me with token", path: "/me", bearer: bearer, want: http.StatusOK},
		{name: "settings with token", path: "/settings", bearer: bearer, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			srv.handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	var body struct {
		User struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.ID != "admin" || body.User.Role != "admin" {
		t.Fatalf("me = %+v", body.User)
	}
}

func TestNewServerPersistsToSQLite(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.StorageSQLite, filepath.Join(t.TempDir(), "officehours.db"))

	first, err := newServer(context.Background(), cfg, fixedNow, discardLogger())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cfg.BootstrapAdminID = "someone-else"
	second, err := newServer(context.Background(), cfg, fixedNow, discardLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	users, err := second.users.ListUsers(context.Background(), application.Principal{UserID: "admin", IsAdmin: true})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].ID != "admin" {
		t.Fatalf("users = %+v, want only the first bootstrapped admin", users)
	}
}

func TestNewServerRejectsInvalidSetup(t *testing.T) {
	t.Parallel()

	badCron := testConfig(config.StorageMemory, "")
	badCron.DispatchCron = "every now and then"

	unknown := testConfig("postgres", "")

	for name, cfg := range map[string]config.Config{"bad cron": badCron, "unknown storage": unknown} {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			srv, err := newServer(context.Background(), cfg, fixedNow, discardLogger())
			if err == nil {
				_ = srv.Close()
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.StorageMemory, "")
	cfg.HTTPPort = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, discardLogger()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

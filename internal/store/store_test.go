package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite("") // in-memory
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createKey(t *testing.T, s *Store, name, secret string) *model.APIKey {
	t.Helper()
	k := &model.APIKey{Name: name, Secret: secret, IsActive: true, Type: model.KeyTypeDev}
	if err := s.CreateAPIKey(context.Background(), k); err != nil {
		t.Fatalf("CreateAPIKey(%q): %v", name, err)
	}
	return k
}

func TestAPIKeyCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Create
	k := createKey(t, s, "ci-bot", "pk_abc_1")
	if k.ID == "" {
		t.Fatal("expected ID to be assigned on create")
	}
	if k.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be assigned on create")
	}

	// Get
	got, err := s.GetAPIKey(ctx, k.ID)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got.Name != "ci-bot" || got.Secret != "pk_abc_1" {
		t.Errorf("got %+v", got)
	}
	if !got.IsActive {
		t.Error("expected key to be active")
	}
	if got.Type != model.KeyTypeDev {
		t.Errorf("got type %q, want dev", got.Type)
	}
	if got.MonthlyLimit != nil {
		t.Errorf("expected nil monthly limit, got %v", *got.MonthlyLimit)
	}
	if got.LastUsedAt != nil {
		t.Errorf("expected nil last used, got %v", got.LastUsedAt)
	}
	if !got.CreatedAt.Equal(k.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, k.CreatedAt)
	}

	// GetBySecret
	bySecret, err := s.GetAPIKeyBySecret(ctx, "pk_abc_1")
	if err != nil {
		t.Fatalf("GetAPIKeyBySecret: %v", err)
	}
	if bySecret.ID != k.ID {
		t.Errorf("got ID %q, want %q", bySecret.ID, k.ID)
	}

	// Update name only
	newName := "deploy-bot"
	updated, err := s.UpdateAPIKey(ctx, k.ID, APIKeyPatch{Name: &newName})
	if err != nil {
		t.Fatalf("UpdateAPIKey: %v", err)
	}
	if updated.Name != "deploy-bot" {
		t.Errorf("got name %q, want deploy-bot", updated.Name)
	}
	if !updated.IsActive {
		t.Error("name-only update must not change isActive")
	}
	if updated.Secret != "pk_abc_1" {
		t.Error("update must not change the secret")
	}

	// Update active only
	inactive := false
	updated, err = s.UpdateAPIKey(ctx, k.ID, APIKeyPatch{IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateAPIKey: %v", err)
	}
	if updated.IsActive || updated.Name != "deploy-bot" {
		t.Errorf("got %+v", updated)
	}

	// Delete returns the snapshot
	deleted, err := s.DeleteAPIKey(ctx, k.ID)
	if err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if deleted.ID != k.ID || deleted.Name != "deploy-bot" {
		t.Errorf("got deleted snapshot %+v", deleted)
	}

	if _, err := s.GetAPIKey(ctx, k.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.DeleteAPIKey(ctx, k.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAPIKeyNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetAPIKey(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAPIKey: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetAPIKeyBySecret(ctx, "pk_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAPIKeyBySecret: expected ErrNotFound, got %v", err)
	}
	name := "x"
	if _, err := s.UpdateAPIKey(ctx, "missing", APIKeyPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAPIKey: expected ErrNotFound, got %v", err)
	}
}

func TestAPIKeySecretUnique(t *testing.T) {
	s := newTestStore(t)
	createKey(t, s, "a", "pk_same_1")

	k := &model.APIKey{Name: "b", Secret: "pk_same_1", IsActive: true, Type: model.KeyTypeDev}
	err := s.CreateAPIKey(context.Background(), k)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestListAPIKeysNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.ListAPIKeys(ctx)
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", list)
	}

	first := createKey(t, s, "first", "pk_1")
	time.Sleep(2 * time.Millisecond)
	second := createKey(t, s, "second", "pk_2")
	time.Sleep(2 * time.Millisecond)
	third := createKey(t, s, "third", "pk_3")

	list, err = s.ListAPIKeys(ctx)
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d keys, want 3", len(list))
	}
	want := []string{third.ID, second.ID, first.ID}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d] = %s, want %s", i, list[i].Name, id)
		}
	}
}

func TestMonthlyLimitRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	limit := int64(500)
	k := &model.APIKey{Name: "limited", Secret: "pk_lim", IsActive: true, Type: model.KeyTypeProd, MonthlyLimit: &limit}
	if err := s.CreateAPIKey(ctx, k); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	got, err := s.GetAPIKey(ctx, k.ID)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got.MonthlyLimit == nil || *got.MonthlyLimit != 500 {
		t.Errorf("MonthlyLimit = %v, want 500", got.MonthlyLimit)
	}
	if got.Type != model.KeyTypeProd {
		t.Errorf("Type = %q, want prod", got.Type)
	}
}

func TestTouchAPIKeyIsMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	k := createKey(t, s, "touched", "pk_touch")

	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	if err := s.TouchAPIKey(ctx, k.ID, t2); err != nil {
		t.Fatalf("TouchAPIKey: %v", err)
	}
	// An older timestamp arriving late must not move lastUsedAt backwards.
	if err := s.TouchAPIKey(ctx, k.ID, t1); err != nil {
		t.Fatalf("TouchAPIKey: %v", err)
	}

	got, err := s.GetAPIKey(ctx, k.ID)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(t2) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, t2)
	}

	// Touching a key that no longer exists is silently ignored.
	if err := s.TouchAPIKey(ctx, "gone", t2); err != nil {
		t.Errorf("TouchAPIKey on missing key: %v", err)
	}
}

func TestProfileCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &model.UserProfile{ID: "google-123", Email: "ada@example.com", FullName: "Ada"}
	if err := s.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	dup := &model.UserProfile{ID: "google-123", Email: "other@example.com"}
	if err := s.CreateProfile(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on duplicate profile, got %v", err)
	}

	got, err := s.GetProfile(ctx, "google-123")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Email != "ada@example.com" || got.FullName != "Ada" {
		t.Errorf("got %+v", got)
	}

	avatar := "https://example.com/a.png"
	updated, err := s.UpdateProfile(ctx, "google-123", ProfilePatch{AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.AvatarURL != avatar || updated.FullName != "Ada" {
		t.Errorf("got %+v", updated)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Error("UpdatedAt must not precede CreatedAt")
	}

	list, err := s.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d profiles, want 1", len(list))
	}

	if err := s.DeleteProfile(ctx, "google-123"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if err := s.DeleteProfile(ctx, "google-123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle", DSN: "x"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		in, name, sqlDriver string
	}{
		{"", DriverSQLite, "sqlite"},
		{"sqlite", DriverSQLite, "sqlite"},
		{"postgres", DriverPostgres, "pgx"},
		{"pgx", DriverPostgres, "pgx"},
		{"mysql", DriverMySQL, "mysql"},
		{"sqlserver", DriverSQLServer, "sqlserver"},
		{"mssql", DriverSQLServer, "sqlserver"},
	}
	for _, tt := range tests {
		d, err := dialectFor(tt.in)
		if err != nil {
			t.Errorf("dialectFor(%q): %v", tt.in, err)
			continue
		}
		if d.name != tt.name || d.sqlDriver != tt.sqlDriver {
			t.Errorf("dialectFor(%q) = {%s %s}, want {%s %s}", tt.in, d.name, d.sqlDriver, tt.name, tt.sqlDriver)
		}
		if len(d.migrations) == 0 {
			t.Errorf("dialectFor(%q) has no migrations", tt.in)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"UNIQUE constraint failed: api_keys.secret", true},
		{`ERROR: duplicate key value violates unique constraint "api_keys_secret_key"`, true},
		{"Error 1062 (23000): Duplicate entry 'pk_x' for key 'uq_api_keys_secret'", true},
		{"Violation of UNIQUE KEY constraint 'uq_api_keys_secret'", true},
		{"connection refused", false},
	}
	for _, tt := range tests {
		if got := isUniqueViolation(errors.New(tt.msg)); got != tt.want {
			t.Errorf("isUniqueViolation(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestIsUniqueViolationTypedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres wrapped", fmt.Errorf("insert api key: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres foreign key", &pgconn.PgError{Code: "23503", Message: "duplicate key in other table"}, false},
		{"mysql duplicate entry", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1045, Message: "duplicate entry"}, false},
		{"mssql unique constraint", mssql.Error{Number: 2627}, true},
		{"mssql unique index", mssql.Error{Number: 2601}, true},
		{"mssql deadlock", mssql.Error{Number: 1205}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolationSQLiteDriverError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO api_keys (id, name, secret, is_active, key_type, created_at)
		VALUES ('a', 'one', 'pk_same', 1, 'dev', CURRENT_TIMESTAMP)`)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO api_keys (id, name, secret, is_active, key_type, created_at)
		VALUES ('b', 'two', 'pk_same', 1, 'dev', CURRENT_TIMESTAMP)`)
	if err == nil {
		t.Fatal("expected duplicate secret to fail")
	}
	if !isUniqueViolation(err) {
		t.Errorf("isUniqueViolation(%v) = false, want true", err)
	}
}

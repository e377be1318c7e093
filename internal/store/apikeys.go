package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
)

const apiKeyColumns = `id, name, secret, is_active, key_type, monthly_limit, created_at, last_used_at`

// APIKeyPatch carries the editable fields of an API key. Nil fields are left
// unchanged.
type APIKeyPatch struct {
	Name     *string
	IsActive *bool
}

// Empty reports whether the patch changes nothing.
func (p APIKeyPatch) Empty() bool {
	return p.Name == nil && p.IsActive == nil
}

// CreateAPIKey inserts a new key. ID and CreatedAt are assigned here; the
// caller supplies name, secret, type and the optional monthly limit.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate api key id: %w", err)
	}
	key.ID = id.String()
	key.CreatedAt = now()
	key.LastUsedAt = nil

	const q = `INSERT INTO api_keys
		(id, name, secret, is_active, key_type, monthly_limit, created_at, last_used_at)
		VALUES
		(:id, :name, :secret, :is_active, :key_type, :monthly_limit, :created_at, :last_used_at)`

	if _, err := s.db.NamedExecContext(ctx, q, key); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert api key: %w", ErrConflict)
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKey returns a key by ID.
func (s *Store) GetAPIKey(ctx context.Context, id string) (*model.APIKey, error) {
	return getAPIKey(ctx, s.db, "id", id)
}

// GetAPIKeyBySecret returns the key whose secret matches exactly.
func (s *Store) GetAPIKeyBySecret(ctx context.Context, secret string) (*model.APIKey, error) {
	return getAPIKey(ctx, s.db, "secret", secret)
}

func getAPIKey(ctx context.Context, q sqlx.QueryerContext, column, value string) (*model.APIKey, error) {
	var key model.APIKey
	query := sqlx.Rebind(sqlx.BindType(driverNameOf(q)), "SELECT "+apiKeyColumns+" FROM api_keys WHERE "+column+" = ?")
	if err := sqlx.GetContext(ctx, q, &key, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by %s: %w", column, err)
	}
	normalizeAPIKey(&key)
	return &key, nil
}

// ListAPIKeys returns every key, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	q := "SELECT " + apiKeyColumns + " FROM api_keys ORDER BY created_at DESC, id DESC"
	if err := s.db.SelectContext(ctx, &keys, q); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	for i := range keys {
		normalizeAPIKey(&keys[i])
	}
	return keys, nil
}

// UpdateAPIKey applies patch to the key with the given ID and returns the
// stored record after the change.
func (s *Store) UpdateAPIKey(ctx context.Context, id string, patch APIKeyPatch) (*model.APIKey, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update api key: %w", err)
	}
	defer tx.Rollback()

	key, err := getAPIKey(ctx, tx, "id", id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		key.Name = *patch.Name
	}
	if patch.IsActive != nil {
		key.IsActive = *patch.IsActive
	}

	if !patch.Empty() {
		q := tx.Rebind("UPDATE api_keys SET name = ?, is_active = ? WHERE id = ?")
		if _, err := tx.ExecContext(ctx, q, key.Name, key.IsActive, id); err != nil {
			return nil, fmt.Errorf("update api key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update api key: %w", err)
	}
	return key, nil
}

// DeleteAPIKey removes a key and returns the record as it was just before
// deletion.
func (s *Store) DeleteAPIKey(ctx context.Context, id string) (*model.APIKey, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete api key: %w", err)
	}
	defer tx.Rollback()

	key, err := getAPIKey(ctx, tx, "id", id)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM api_keys WHERE id = ?"), id)
	if err != nil {
		return nil, fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete api key: %w", err)
	}
	return key, nil
}

// TouchAPIKey records that a key was used at the given time. The stored
// timestamp only ever moves forward; a touch for a deleted key or an older
// timestamp is a no-op.
func (s *Store) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	at = at.UTC().Truncate(time.Microsecond)
	q := s.db.Rebind(`UPDATE api_keys SET last_used_at = ?
		WHERE id = ? AND (last_used_at IS NULL OR last_used_at < ?)`)
	if _, err := s.db.ExecContext(ctx, q, at, id, at); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// normalizeAPIKey pins scanned timestamps to UTC; drivers disagree on the
// location they attach.
func normalizeAPIKey(k *model.APIKey) {
	k.CreatedAt = k.CreatedAt.UTC()
	if k.LastUsedAt != nil {
		t := k.LastUsedAt.UTC()
		k.LastUsedAt = &t
	}
}

// driverNameOf returns the sqlx driver name for a DB or Tx so shared helpers
// can rebind placeholders for whichever handle they were given.
func driverNameOf(q sqlx.QueryerContext) string {
	switch v := q.(type) {
	case *sqlx.DB:
		return v.DriverName()
	case *sqlx.Tx:
		return v.DriverName()
	default:
		return ""
	}
}

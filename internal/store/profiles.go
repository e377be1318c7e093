package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
)

const profileColumns = `id, email, full_name, avatar_url, created_at, updated_at`

// ProfilePatch carries the user-editable profile fields.
type ProfilePatch struct {
	FullName  *string
	AvatarURL *string
}

// CreateProfile inserts a profile keyed by the identity provider's subject.
// A profile that already exists yields ErrConflict and is left untouched.
func (s *Store) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	ts := now()
	p.CreatedAt = ts
	p.UpdatedAt = ts

	const q = `INSERT INTO user_profiles
		(id, email, full_name, avatar_url, created_at, updated_at)
		VALUES
		(:id, :email, :full_name, :avatar_url, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, p); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert profile: %w", ErrConflict)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// GetProfile returns a profile by ID.
func (s *Store) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	return getProfile(ctx, s.db, id)
}

func getProfile(ctx context.Context, q sqlx.QueryerContext, id string) (*model.UserProfile, error) {
	var p model.UserProfile
	query := sqlx.Rebind(sqlx.BindType(driverNameOf(q)), "SELECT "+profileColumns+" FROM user_profiles WHERE id = ?")
	if err := sqlx.GetContext(ctx, q, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// ListProfiles returns every profile ordered by email.
func (s *Store) ListProfiles(ctx context.Context) ([]model.UserProfile, error) {
	var profiles []model.UserProfile
	q := "SELECT " + profileColumns + " FROM user_profiles ORDER BY email, id"
	if err := s.db.SelectContext(ctx, &profiles, q); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if profiles == nil {
		profiles = []model.UserProfile{}
	}
	return profiles, nil
}

// UpdateProfile applies patch and returns the stored profile.
func (s *Store) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*model.UserProfile, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update profile: %w", err)
	}
	defer tx.Rollback()

	p, err := getProfile(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = *patch.AvatarURL
	}
	p.UpdatedAt = now()

	q := tx.Rebind("UPDATE user_profiles SET full_name = ?, avatar_url = ?, updated_at = ? WHERE id = ?")
	if _, err := tx.ExecContext(ctx, q, p.FullName, p.AvatarURL, p.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update profile: %w", err)
	}
	return p, nil
}

// DeleteProfile removes a profile by ID.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM user_profiles WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

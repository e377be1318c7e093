package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/store"
	"github.com/Niamh518/Dandi-curser-project/internal/usage"
)

// KeyLookup finds a key by its literal secret.
type KeyLookup interface {
	GetAPIKeyBySecret(ctx context.Context, secret string) (*model.APIKey, error)
}

// AuthService validates API key secrets presented by callers.
type AuthService struct {
	keys     KeyLookup
	recorder usage.Recorder
	now      func() time.Time
}

// NewAuthService creates an AuthService. A nil recorder discards usage
// events.
func NewAuthService(keys KeyLookup, recorder usage.Recorder) *AuthService {
	if recorder == nil {
		recorder = usage.Nop{}
	}
	return &AuthService{
		keys:     keys,
		recorder: recorder,
		now:      time.Now,
	}
}

// ValidateAPIKey checks secret against stored keys. On success the key's
// last-used time is recorded without waiting and the key's identity is
// returned; the secret itself is never echoed back.
func (s *AuthService) ValidateAPIKey(ctx context.Context, secret string) (*model.KeyPrincipal, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingCredential
	}

	key, err := s.keys.GetAPIKeyBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, &StoreError{Op: "validate api key", Err: err}
	}

	if !key.IsActive {
		return nil, ErrInactiveCredential
	}

	// Update last used timestamp (fire and forget)
	s.recorder.Record(key.ID, s.now())

	return &model.KeyPrincipal{
		ID:   key.ID,
		Name: key.Name,
	}, nil
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/store"
)

const (
	// DefaultKeyPrefix starts every generated secret unless configured.
	DefaultKeyPrefix = "pk"

	secretRandomLen = 9
	base36          = "0123456789abcdefghijklmnopqrstuvwxyz"

	// A freshly generated secret colliding with an existing one is
	// vanishingly rare; regenerate a couple of times before giving up.
	maxSecretAttempts = 3
)

// KeyStore is the persistence the key service needs.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKey(ctx context.Context, id string) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]model.APIKey, error)
	UpdateAPIKey(ctx context.Context, id string, patch store.APIKeyPatch) (*model.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) (*model.APIKey, error)
}

// CreateKeyInput is the caller-supplied part of a new key.
type CreateKeyInput struct {
	Name         string
	Type         model.KeyType
	MonthlyLimit *int64
}

// UpdateKeyInput names a key and the fields to change. Nil fields are left
// as they are.
type UpdateKeyInput struct {
	ID       string
	Name     *string
	IsActive *bool
}

// KeyService implements the API key lifecycle.
type KeyService struct {
	store  KeyStore
	prefix string
	now    func() time.Time
	random io.Reader
}

func NewKeyService(store KeyStore, prefix string) *KeyService {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	return &KeyService{
		store:  store,
		prefix: prefix,
		now:    time.Now,
		random: rand.Reader,
	}
}

// List returns every key, newest first.
func (s *KeyService) List(ctx context.Context) ([]model.APIKey, error) {
	keys, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		return nil, storeErr("list api keys", err)
	}
	return keys, nil
}

// Get returns a single key by ID.
func (s *KeyService) Get(ctx context.Context, id string) (*model.APIKey, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "ID is required")
	}
	key, err := s.store.GetAPIKey(ctx, id)
	if err != nil {
		return nil, storeErr("get api key", err)
	}
	return key, nil
}

// Create validates in, generates a secret and persists an active key.
func (s *KeyService) Create(ctx context.Context, in CreateKeyInput) (*model.APIKey, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "Name is required")
	}

	keyType := in.Type
	if keyType == "" {
		keyType = model.KeyTypeDev
	}
	if !keyType.Valid() {
		return nil, invalid("type", `Type must be "dev" or "prod"`)
	}

	if in.MonthlyLimit != nil && *in.MonthlyLimit < 0 {
		return nil, invalid("monthlyLimit", "Monthly limit must not be negative")
	}

	for attempt := 1; ; attempt++ {
		secret, err := GenerateSecret(s.random, s.prefix, s.now())
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}

		key := &model.APIKey{
			Name:         name,
			Secret:       secret,
			IsActive:     true,
			Type:         keyType,
			MonthlyLimit: in.MonthlyLimit,
		}
		err = s.store.CreateAPIKey(ctx, key)
		if err == nil {
			return key, nil
		}
		if errors.Is(err, store.ErrConflict) && attempt < maxSecretAttempts {
			continue
		}
		return nil, storeErr("create api key", err)
	}
}

// Update applies the supplied fields to an existing key.
func (s *KeyService) Update(ctx context.Context, in UpdateKeyInput) (*model.APIKey, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, invalid("id", "ID is required")
	}

	patch := store.APIKeyPatch{IsActive: in.IsActive}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "Name must not be empty")
		}
		patch.Name = &name
	}

	key, err := s.store.UpdateAPIKey(ctx, in.ID, patch)
	if err != nil {
		return nil, storeErr("update api key", err)
	}
	return key, nil
}

// Delete removes a key and returns the record as it was.
func (s *KeyService) Delete(ctx context.Context, id string) (*model.APIKey, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "ID is required")
	}
	key, err := s.store.DeleteAPIKey(ctx, id)
	if err != nil {
		return nil, storeErr("delete api key", err)
	}
	return key, nil
}

// GenerateSecret builds "<prefix>_<9 random base36 chars>_<unix millis>".
// The random part is drawn from r without modulo bias.
func GenerateSecret(r io.Reader, prefix string, now time.Time) (string, error) {
	max := big.NewInt(int64(len(base36)))
	var b strings.Builder
	b.Grow(len(prefix) + 1 + secretRandomLen + 1 + 13)

	b.WriteString(prefix)
	b.WriteByte('_')
	for i := 0; i < secretRandomLen; i++ {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(base36[n.Int64()])
	}
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	return b.String(), nil
}

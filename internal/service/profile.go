package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/store"
)

// ProfileStore is the persistence the profile service needs.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *model.UserProfile) error
	GetProfile(ctx context.Context, id string) (*model.UserProfile, error)
	ListProfiles(ctx context.Context) ([]model.UserProfile, error)
	UpdateProfile(ctx context.Context, id string, patch store.ProfilePatch) (*model.UserProfile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// UpdateProfileInput carries the user-editable fields. Nil fields are left
// unchanged.
type UpdateProfileInput struct {
	FullName  *string
	AvatarURL *string
}

// ProfileService manages user profiles mirrored from the identity provider.
type ProfileService struct {
	store ProfileStore
}

func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// Ensure returns the profile for identity, creating it from the identity's
// fields on first sign-in. An existing profile is never overwritten.
func (s *ProfileService) Ensure(ctx context.Context, identity model.Identity) (*model.UserProfile, bool, error) {
	if identity.Subject == "" {
		return nil, false, invalid("id", "Identity subject is required")
	}

	existing, err := s.store.GetProfile(ctx, identity.Subject)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, storeErr("get profile", err)
	}

	p := &model.UserProfile{
		ID:        identity.Subject,
		Email:     identity.Email,
		FullName:  identity.Name,
		AvatarURL: identity.AvatarURL,
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost a race with a concurrent first sign-in.
			existing, err := s.store.GetProfile(ctx, identity.Subject)
			if err != nil {
				return nil, false, storeErr("get profile", err)
			}
			return existing, false, nil
		}
		return nil, false, storeErr("create profile", err)
	}
	return p, true, nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	if id == "" {
		return nil, invalid("id", "Profile ID is required")
	}
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	return p, nil
}

func (s *ProfileService) List(ctx context.Context) ([]model.UserProfile, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, storeErr("list profiles", err)
	}
	return profiles, nil
}

// Update edits the profile's display fields.
func (s *ProfileService) Update(ctx context.Context, id string, in UpdateProfileInput) (*model.UserProfile, error) {
	if id == "" {
		return nil, invalid("id", "Profile ID is required")
	}

	var patch store.ProfilePatch
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		patch.FullName = &name
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" {
			u, err := url.Parse(avatar)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, invalid("avatarUrl", "Avatar URL must be an http(s) URL")
			}
		}
		patch.AvatarURL = &avatar
	}

	p, err := s.store.UpdateProfile(ctx, id, patch)
	if err != nil {
		return nil, storeErr("update profile", err)
	}
	return p, nil
}

func (s *ProfileService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return invalid("id", "Profile ID is required")
	}
	if err := s.store.DeleteProfile(ctx, id); err != nil {
		return storeErr("delete profile", err)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
)

func TestEnsureProfileCreatesOnce(t *testing.T) {
	profiles := NewProfileService(newTestStore(t))
	ctx := context.Background()

	id := model.Identity{Subject: "sub-1", Email: "ada@example.com", Name: "Ada", AvatarURL: "https://example.com/a.png"}

	p, created, err := profiles.Ensure(ctx, id)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !created {
		t.Error("first Ensure should create the profile")
	}
	if p.ID != "sub-1" || p.Email != "ada@example.com" || p.FullName != "Ada" {
		t.Errorf("got %+v", p)
	}

	// Later sign-ins with changed provider data leave the profile alone.
	id.Name = "Ada Lovelace"
	p2, created, err := profiles.Ensure(ctx, id)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if created {
		t.Error("second Ensure must not create")
	}
	if p2.FullName != "Ada" {
		t.Errorf("FullName = %q, want unchanged %q", p2.FullName, "Ada")
	}
}

func TestEnsureProfileRequiresSubject(t *testing.T) {
	profiles := NewProfileService(newTestStore(t))
	_, _, err := profiles.Ensure(context.Background(), model.Identity{Email: "x@y.z"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	profiles := NewProfileService(newTestStore(t))
	ctx := context.Background()
	profiles.Ensure(ctx, model.Identity{Subject: "sub-1", Email: "ada@example.com"})

	name := "  Ada L.  "
	p, err := profiles.Update(ctx, "sub-1", UpdateProfileInput{FullName: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.FullName != "Ada L." {
		t.Errorf("FullName = %q", p.FullName)
	}

	bad := "javascript:alert(1)"
	_, err = profiles.Update(ctx, "sub-1", UpdateProfileInput{AvatarURL: &bad})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "avatarUrl" {
		t.Errorf("expected avatarUrl ValidationError, got %v", err)
	}

	empty := ""
	p, err = profiles.Update(ctx, "sub-1", UpdateProfileInput{AvatarURL: &empty})
	if err != nil {
		t.Fatalf("clearing avatar: %v", err)
	}
	if p.AvatarURL != "" {
		t.Errorf("AvatarURL = %q, want empty", p.AvatarURL)
	}

	if _, err := profiles.Update(ctx, "nobody", UpdateProfileInput{FullName: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProfile(t *testing.T) {
	profiles := NewProfileService(newTestStore(t))
	ctx := context.Background()
	profiles.Ensure(ctx, model.Identity{Subject: "sub-1", Email: "ada@example.com"})

	if err := profiles.Delete(ctx, "sub-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := profiles.Get(ctx, "sub-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	list, err := profiles.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("got %d profiles, want 0", len(list))
	}
}

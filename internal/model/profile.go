package model

import "time"

// UserProfile mirrors the identity returned by the OAuth provider. It is
// created on first sign-in and only changed by explicit profile edits.
type UserProfile struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"fullName,omitempty" db:"full_name"`
	AvatarURL string    `json:"avatarUrl,omitempty" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Identity is the subset of OAuth user info the service cares about.
type Identity struct {
	Subject   string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"picture"`
}

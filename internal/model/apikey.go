package model

import "time"

// KeyType distinguishes development keys from production keys. It is set
// once at creation and is not editable afterwards.
type KeyType string

const (
	KeyTypeDev  KeyType = "dev"
	KeyTypeProd KeyType = "prod"
)

// Valid reports whether t is one of the known key types.
func (t KeyType) Valid() bool {
	return t == KeyTypeDev || t == KeyTypeProd
}

// APIKey is a bearer credential issued from the dashboard. The secret is
// stored and compared in plaintext; it is returned in full by every endpoint
// that returns the record.
type APIKey struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Secret       string     `json:"secret" db:"secret"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	Type         KeyType    `json:"type" db:"key_type"`
	MonthlyLimit *int64     `json:"monthlyLimit" db:"monthly_limit"` // nil means unlimited; never enforced
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty" db:"last_used_at"`
}

// KeyPrincipal is what a successful validation reveals about a key.
type KeyPrincipal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

package queue

import "time"

const (
	TypeAPIKeyTouch = "apikey:touch"
)

// APIKeyTouchPayload records that a key was used at UsedAt.
type APIKeyTouchPayload struct {
	KeyID  string    `json:"key_id"`
	UsedAt time.Time `json:"used_at"`
}

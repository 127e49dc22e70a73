package harness

import "github.com/google/uuid"

// TokenGenerator produces run tokens: opaque correlation IDs stamped on the
// trace a run emits.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered unique run tokens. This is the
// runner's default; scenarios that pin run_token never consult it.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

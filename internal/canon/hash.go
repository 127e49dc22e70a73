package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest computes the hex SHA-256 of v's canonical form, prefixed by a
// domain string so digests from different contexts never collide:
//
//	sha256(domain || 0x00 || canonical(v))
func Digest(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("computing digest: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

package util

import (
	"crypto/sha256"
	"encoding/hex"
)

const shortKeyLen = 16

// Fingerprint returns the hex SHA-256 of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortKey returns a stable 16-character hex partition for an id. Storage keys
// use it so lead ids never appear in object paths.
func ShortKey(id string) string {
	return Fingerprint([]byte(id))[:shortKeyLen]
}

package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum returns the lowercase hex SHA-256 of data.
//
// It is computed over the exact bytes, never a re-serialized form, so the
// value returned by a write matches the checksum of the next read.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateSHA256 returns the hex SHA-256 digest of data, used to fingerprint scanned inputs.
func CalculateSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// pkg/utils/identity.go
package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// MD5Hash generates MD5 hash of input string
func MD5Hash(input string) string {
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}

// IdentityKey builds the rate-limiting subject for a request: the
// authenticated user id when present, else the client's network address.
// The key is hashed so redis key space stays uniform either way.
func IdentityKey(userID, clientIP string) string {
	if userID != "" {
		return "user:" + MD5Hash(userID)
	}
	return "ip:" + MD5Hash(clientIP)
}

// GenerateRandomID generates a random ID
func GenerateRandomID(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)[:length]
}

// Package token issues the opaque tokens used in newsletter links.
package token

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns a 64-character hex token from 32 random bytes.
func New() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ConsentDocument is one published version of the GDPR consent text.
// Versions are immutable: changing the text means publishing a new version.
// Checksum is the hex sha256 of the body and pins what was actually signed.
type ConsentDocument struct {
	ID          string
	Version     int
	Title       string
	Body        string
	Checksum    string
	PublishedAt time.Time
}

// ConsentSignature ties a customer to exactly one document version.
type ConsentSignature struct {
	ID             string
	CustomerID     string
	DocumentID     string
	SignatureImage string // base64-encoded PNG from the signature pad
	SignedAt       time.Time
}

func ConsentChecksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

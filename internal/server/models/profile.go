// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/mitrasign/internal/server/access"
)

// Profile is a signer account. The identity fields (Email, PasswordHash,
// Salt) are owned by the user service; every other component reads only the
// public part.
type Profile struct {
	ID           string
	Email        string
	PasswordHash []byte
	Salt         []byte
	FullName     string
	UnitName     string
	DefaultClass string
	Role         access.Role
	CreatedAt    time.Time
}

// SignerSummary is one row of the admin signer listing. Records whose
// creator has no profile are summarized in rows with Known false, so the
// counts always add up to the total number of records.
type SignerSummary struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	UnitName       string `json:"unit_name"`
	Role           string `json:"role"`
	SignatureCount int64  `json:"signature_count"`

	// Known is false for creators whose profile no longer exists.
	Known bool `json:"signer_known"`
}

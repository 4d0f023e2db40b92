package models

import "time"

// SignatureState is the lifecycle of an attestation record.
type SignatureState int

const (
	StateDraft SignatureState = iota
	StateIssued
	StateRevoked
)

func (s SignatureState) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateIssued:
		return "issued"
	case StateRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next is allowed.
// Draft -> Issued -> Revoked; Revoked is terminal.
func (s SignatureState) CanTransition(next SignatureState) bool {
	switch s {
	case StateDraft:
		return next == StateIssued
	case StateIssued:
		return next == StateRevoked
	default:
		return false
	}
}

// Signature is an issued attestation that a document was signed.
// Records carry no signer display fields; those are joined from the
// current profile at read time.
type Signature struct {
	ID         string         `json:"id"`
	CreatedBy  string         `json:"created_by"`
	Subject    string         `json:"subject"`
	ClassName  string         `json:"class_name"`
	DateSigned string         `json:"date_signed"`
	CreatedAt  time.Time      `json:"created_at"`
	State      SignatureState `json:"-"`
}

// Verification is the public result of resolving an id.
type Verification struct {
	ID             string `json:"id"`
	Subject        string `json:"subject"`
	ClassName      string `json:"class_name"`
	DateSigned     string `json:"date_signed"`
	SignerFullName string `json:"signer_full_name"`
	SignerUnitName string `json:"signer_unit_name"`
	SignerKnown    bool   `json:"signer_known"`
}

// LegacyParams are the fields older QR codes embedded directly in the URL.
type LegacyParams struct {
	Name    string
	Class   string
	Subject string
	Date    string
	Unit    string
}

// LegacyVerification echoes a legacy reference. It is never verified.
type LegacyVerification struct {
	Verified   bool   `json:"verified"`
	Legacy     bool   `json:"legacy"`
	Notice     string `json:"notice"`
	SignerName string `json:"signer_name"`
	ClassName  string `json:"class_name"`
	Subject    string `json:"subject"`
	DateSigned string `json:"date_signed"`
	UnitName   string `json:"unit_name"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalSigners    int64  `json:"total_signers"`
	TotalSignatures int64  `json:"total_signatures"`
	TodaySignatures int64  `json:"today_signatures"`
	Today           string `json:"today"`
}

package services

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/mitrasign/internal/common"
)

// Issuer assigns record ids and builds the canonical verification URL,
// which embeds the id and nothing else.
type Issuer struct {
	baseURL string
	newID   func() string
}

func NewIssuer(verifyBaseURL string) *Issuer {
	return &Issuer{
		baseURL: verifyBaseURL,
		newID:   func() string { return uuid.NewString() },
	}
}

// NewID returns a fresh random (v4) UUID.
func (i *Issuer) NewID() string {
	return i.newID()
}

// VerificationURL returns <verify endpoint>?id=<id>.
func (i *Issuer) VerificationURL(id string) string {
	sep := "?"
	if strings.Contains(i.baseURL, "?") {
		sep = "&"
	}
	return i.baseURL + sep + common.VerifyIDParam + "=" + url.QueryEscape(id)
}

// ParseID normalizes an untrusted id. ok is false when raw is not a UUID,
// in which case no record can match it.
func ParseID(raw string) (id string, ok bool) {
	u, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

package access

import (
	"fmt"

	"github.com/dmitrijs2005/mitrasign/internal/common"
)

func authenticated(c Caller) error {
	if c.Anonymous() {
		return common.ErrorUnauthorized
	}
	if _, err := ParseRole(string(c.Role)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorForbidden, err)
	}
	return nil
}

// CanIssue allows any authenticated caller to create records as itself.
func CanIssue(c Caller) error {
	return authenticated(c)
}

// CanRevoke allows deletion by the record owner only. Admins get no extra
// write rights.
func CanRevoke(c Caller, ownerID string) error {
	if err := authenticated(c); err != nil {
		return err
	}
	if c.ID != ownerID {
		return fmt.Errorf("%w: only the owner may delete a signature", common.ErrorForbidden)
	}
	return nil
}

// CanShare allows only the owner to render a record's verification QR code.
func CanShare(c Caller, ownerID string) error {
	if err := authenticated(c); err != nil {
		return err
	}
	if c.ID != ownerID {
		return fmt.Errorf("%w: only the owner may share a signature", common.ErrorForbidden)
	}
	return nil
}

// CanReadRecord allows the owner or an admin.
func CanReadRecord(c Caller, ownerID string) error {
	if err := authenticated(c); err != nil {
		return err
	}
	if c.ID == ownerID || c.IsAdmin() {
		return nil
	}
	return fmt.Errorf("%w: signature belongs to another signer", common.ErrorForbidden)
}

// CanReadHistory allows a caller to read its own history; other histories
// require the admin role.
func CanReadHistory(c Caller, targetID string) error {
	if err := authenticated(c); err != nil {
		return err
	}
	if targetID == "" || targetID == c.ID || c.IsAdmin() {
		return nil
	}
	return fmt.Errorf("%w: history of another signer", common.ErrorForbidden)
}

// CanAggregate gates the admin dashboard views.
func CanAggregate(c Caller) error {
	if err := authenticated(c); err != nil {
		return err
	}
	if !c.IsAdmin() {
		return fmt.Errorf("%w: admin role required", common.ErrorForbidden)
	}
	return nil
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/logging"
	"github.com/dmitrijs2005/mitrasign/internal/server/access"
	"github.com/dmitrijs2005/mitrasign/internal/server/events"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/repomanager"
)

// QRSize is the edge length in pixels of rendered verification QR codes.
const QRSize = 256

// CreateSignatureInput is what a signer submits for a new record.
type CreateSignatureInput struct {
	Subject    string
	ClassName  string
	DateSigned string
}

// IssuedSignature is a freshly created record plus its verification URL.
type IssuedSignature struct {
	Record    *models.Signature
	VerifyURL string
}

// History is the record list of one signer.
type History struct {
	// Signer is nil when the target profile no longer exists.
	Signer     *models.Profile
	Signatures []*models.Signature
}

// SignatureService issues, reads and revokes signature records.
type SignatureService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *Issuer
	publisher   events.Publisher
	logger      logging.Logger
	now         func() time.Time
	dateLayout  string
	location    *time.Location
}

func NewSignatureService(db *sql.DB, m repomanager.RepositoryManager, issuer *Issuer,
	publisher events.Publisher, logger logging.Logger, dateLayout string, loc *time.Location) *SignatureService {
	return &SignatureService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		publisher:   publisher,
		logger:      logger.With("module", "signatures"),
		now:         time.Now,
		dateLayout:  dateLayout,
		location:    loc,
	}
}

// Create stores a new record owned by the caller. Subject and class name
// must be non-blank and the caller must have a profile; both are checked
// before anything is written. A blank date defaults to today.
func (s *SignatureService) Create(ctx context.Context, caller access.Caller, in CreateSignatureInput) (*IssuedSignature, error) {
	if err := access.CanIssue(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", common.ErrorValidation)
	}
	if strings.TrimSpace(in.ClassName) == "" {
		return nil, fmt.Errorf("%w: class name is required", common.ErrorValidation)
	}
	if strings.TrimSpace(in.DateSigned) == "" {
		in.DateSigned = s.now().In(s.location).Format(s.dateLayout)
	}

	if _, err := s.repomanager.Profiles(s.db).GetByID(ctx, caller.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: signer has no profile", common.ErrorValidation)
		}
		return nil, err
	}

	record := &models.Signature{
		ID:         s.issuer.NewID(),
		CreatedBy:  caller.ID,
		Subject:    in.Subject,
		ClassName:  in.ClassName,
		DateSigned: in.DateSigned,
		State:      models.StateDraft,
	}
	if err := s.repomanager.Signatures(s.db).Create(ctx, record); err != nil {
		return nil, err
	}
	record.State = models.StateIssued

	s.logger.Info(ctx, "signature issued", "id", record.ID, "created_by", record.CreatedBy)
	s.publish(ctx, events.SignatureIssued, record)

	return &IssuedSignature{Record: record, VerifyURL: s.issuer.VerificationURL(record.ID)}, nil
}

// Get returns a record to its owner or to an admin.
func (s *SignatureService) Get(ctx context.Context, caller access.Caller, rawID string) (*models.Signature, error) {
	if caller.Anonymous() {
		return nil, common.ErrorUnauthorized
	}
	record, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.CanReadRecord(caller, record.CreatedBy); err != nil {
		return nil, err
	}
	return record, nil
}

// Revoke permanently deletes a record. Only its owner may do so; a second
// revoke of the same id reports not found.
func (s *SignatureService) Revoke(ctx context.Context, caller access.Caller, rawID string) error {
	if caller.Anonymous() {
		return common.ErrorUnauthorized
	}
	record, err := s.find(ctx, rawID)
	if err != nil {
		return err
	}
	if err := access.CanRevoke(caller, record.CreatedBy); err != nil {
		return err
	}
	if !record.State.CanTransition(models.StateRevoked) {
		return fmt.Errorf("%w: signature is %s", common.ErrorValidation, record.State)
	}
	if err := s.repomanager.Signatures(s.db).Delete(ctx, record.ID); err != nil {
		return err
	}
	record.State = models.StateRevoked

	s.logger.Info(ctx, "signature revoked", "id", record.ID, "created_by", record.CreatedBy)
	s.publish(ctx, events.SignatureRevoked, record)
	return nil
}

// VerificationQR renders the verification URL of an owned record as PNG.
func (s *SignatureService) VerificationQR(ctx context.Context, caller access.Caller, rawID string) ([]byte, error) {
	if caller.Anonymous() {
		return nil, common.ErrorUnauthorized
	}
	record, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.CanShare(caller, record.CreatedBy); err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.issuer.VerificationURL(record.ID), qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("%w: qr encode: %w", common.ErrorInternal, err)
	}
	return png, nil
}

// History lists the records of targetID (the caller when empty), newest
// first, keeping those whose subject or class name contains filter.
func (s *SignatureService) History(ctx context.Context, caller access.Caller, targetID, filter string) (*History, error) {
	if targetID == "" {
		targetID = caller.ID
	}
	if err := access.CanReadHistory(caller, targetID); err != nil {
		return nil, err
	}

	result := &History{}
	if _, ok := ParseID(targetID); !ok {
		// Profile ids are UUIDs; anything else owns nothing.
		result.Signatures = []*models.Signature{}
		return result, nil
	}

	profile, err := s.repomanager.Profiles(s.db).GetByID(ctx, targetID)
	switch {
	case err == nil:
		result.Signer = profile
	case errors.Is(err, common.ErrorNotFound):
	default:
		return nil, err
	}

	list, err := s.repomanager.Signatures(s.db).ListByCreator(ctx, targetID)
	if err != nil {
		return nil, err
	}
	result.Signatures = FilterSignatures(list, filter)
	return result, nil
}

// FilterSignatures keeps the records whose subject or class name contains
// filter, ignoring case. Order is preserved and the input is not modified.
func FilterSignatures(list []*models.Signature, filter string) []*models.Signature {
	out := make([]*models.Signature, 0, len(list))
	needle := strings.ToLower(filter)
	for _, s := range list {
		if needle == "" ||
			strings.Contains(strings.ToLower(s.Subject), needle) ||
			strings.Contains(strings.ToLower(s.ClassName), needle) {
			out = append(out, s)
		}
	}
	return out
}

func (s *SignatureService) find(ctx context.Context, rawID string) (*models.Signature, error) {
	id, ok := ParseID(rawID)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Signatures(s.db).Get(ctx, id)
}

func (s *SignatureService) publish(ctx context.Context, t events.Type, record *models.Signature) {
	e := events.Event{Type: t, SignatureID: record.ID, CreatedBy: record.CreatedBy, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn(ctx, "event publish failed", "type", string(t), "id", record.ID, "error", err)
	}
}

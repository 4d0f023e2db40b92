package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/logging"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/repomanager"
)

// LegacyNotice accompanies every legacy verification response.
const LegacyNotice = "this reference embeds its data directly and cannot be verified; ask the signer for a new QR code"

// VerificationService answers public, unauthenticated lookups.
type VerificationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewVerificationService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *VerificationService {
	return &VerificationService{db: db, repomanager: m, logger: logger.With("module", "verification")}
}

// Resolve joins a record with the current profile of its signer. Ids that
// are not UUIDs are reported as not found without a store read. When the
// profile is gone the record is still returned with empty signer fields
// and SignerKnown false.
func (s *VerificationService) Resolve(ctx context.Context, rawID string) (*models.Verification, error) {
	id, ok := ParseID(rawID)
	if !ok {
		return nil, common.ErrorNotFound
	}

	record, err := s.repomanager.Signatures(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &models.Verification{
		ID:         record.ID,
		Subject:    record.Subject,
		ClassName:  record.ClassName,
		DateSigned: record.DateSigned,
	}

	profile, err := s.repomanager.Profiles(s.db).GetByID(ctx, record.CreatedBy)
	switch {
	case err == nil:
		v.SignerFullName = profile.FullName
		v.SignerUnitName = profile.UnitName
		v.SignerKnown = true
	case errors.Is(err, common.ErrorNotFound):
		s.logger.Warn(ctx, "signature without signer profile", "id", record.ID, "created_by", record.CreatedBy)
	default:
		return nil, err
	}
	return v, nil
}

// ResolveLegacy echoes the fields of an old field-embedding reference.
// Such references are never reported as verified.
func (s *VerificationService) ResolveLegacy(ctx context.Context, p models.LegacyParams) *models.LegacyVerification {
	s.logger.Warn(ctx, "legacy verification reference used", "name", p.Name, "class", p.Class)
	return &models.LegacyVerification{
		Verified:   false,
		Legacy:     true,
		Notice:     LegacyNotice,
		SignerName: p.Name,
		ClassName:  p.Class,
		Subject:    p.Subject,
		DateSigned: p.Date,
		UnitName:   p.Unit,
	}
}

// Package signatures declares the persistence contract for signature
// records and its PostgreSQL implementation.
package signatures

import (
	"context"

	"github.com/dmitrijs2005/mitrasign/internal/server/models"
)

// Repository stores issued signature records. There is no update
// operation: a record is created once and may only be deleted.
type Repository interface {
	// Create inserts a record whose ID is already assigned. CreatedAt is
	// filled from the database.
	Create(ctx context.Context, s *models.Signature) error

	// Get returns common.ErrorNotFound when the id does not exist.
	Get(ctx context.Context, id string) (*models.Signature, error)

	// ListByCreator returns every record of creatorID, newest first.
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Signature, error)

	// Delete returns common.ErrorNotFound when nothing was removed.
	Delete(ctx context.Context, id string) error

	Count(ctx context.Context) (int64, error)

	// CountByDateSigned counts records whose date_signed text equals date.
	CountByDateSigned(ctx context.Context, date string) (int64, error)

	// CountByCreator returns record counts keyed by creator id.
	CountByCreator(ctx context.Context) (map[string]int64, error)
}

// Package profiles declares the signer directory: profile storage keyed by
// identity, plus its PostgreSQL implementation.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/mitrasign/internal/server/models"
)

// Repository is the signer directory. Create is used only by the identity
// flow; everything else reads.
type Repository interface {
	// Create inserts a profile and fills its ID and CreatedAt. A duplicate
	// email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, p *models.Profile) error

	// GetByID returns common.ErrorNotFound when the id does not exist.
	GetByID(ctx context.Context, id string) (*models.Profile, error)

	// GetByEmail returns common.ErrorNotFound when the email is unknown.
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)

	// List returns every profile ordered by full name.
	List(ctx context.Context) ([]*models.Profile, error)

	Count(ctx context.Context) (int64, error)
}

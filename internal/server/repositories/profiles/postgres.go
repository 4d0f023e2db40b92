package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/dbx"
	"github.com/dmitrijs2005/mitrasign/internal/server/access"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, email, password_hash, salt, full_name, unit_name, default_class, role, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.Profile, error) {
	var (
		p            models.Profile
		defaultClass sql.NullString
		role         string
	)
	if err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Salt, &p.FullName, &p.UnitName, &defaultClass, &role, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.DefaultClass = defaultClass.String
	r, err := access.ParseRole(role)
	if err != nil {
		return nil, err
	}
	p.Role = r
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (email, password_hash, salt, full_name, unit_name, default_class, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	defaultClass := sql.NullString{String: p.DefaultClass, Valid: p.DefaultClass != ""}
	err := r.db.QueryRowContext(ctx, query,
		p.Email, p.PasswordHash, p.Salt, p.FullName, p.UnitName, defaultClass, string(p.Role)).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: email %q", common.ErrorAlreadyExists, p.Email)
		}
		return dbx.StoreError(err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + selectColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, storeOrValidation(err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + selectColumns + ` FROM profiles WHERE email = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, storeOrValidation(err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Profile, error) {
	query := `SELECT ` + selectColumns + ` FROM profiles ORDER BY full_name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbx.StoreError(err)
	}
	defer rows.Close()

	result := make([]*models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, storeOrValidation(err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.StoreError(err)
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, dbx.StoreError(err)
	}
	return n, nil
}

// storeOrValidation keeps a corrupt role value from being reported as a
// transient store failure.
func storeOrValidation(err error) error {
	if errors.Is(err, common.ErrorValidation) {
		return err
	}
	return dbx.StoreError(err)
}

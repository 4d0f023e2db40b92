package signatures

import (
	"context"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/dbx"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Signature) error {
	query := `
		INSERT INTO signatures (id, created_by, subject, class_name, date_signed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.CreatedBy, s.Subject, s.ClassName, s.DateSigned).
		Scan(&s.CreatedAt)
	if err != nil {
		return dbx.StoreError(err)
	}
	s.State = models.StateIssued
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Signature, error) {
	query := `
		SELECT id, created_by, subject, class_name, date_signed, created_at
		FROM signatures
		WHERE id = $1
	`
	s := &models.Signature{State: models.StateIssued}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.CreatedBy, &s.Subject, &s.ClassName, &s.DateSigned, &s.CreatedAt)
	if err != nil {
		return nil, dbx.StoreError(err)
	}
	return s, nil
}

func (r *PostgresRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.Signature, error) {
	query := `
		SELECT id, created_by, subject, class_name, date_signed, created_at
		FROM signatures
		WHERE created_by = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, dbx.StoreError(err)
	}
	defer rows.Close()

	result := make([]*models.Signature, 0)
	for rows.Next() {
		s := &models.Signature{State: models.StateIssued}
		if err := rows.Scan(&s.ID, &s.CreatedBy, &s.Subject, &s.ClassName, &s.DateSigned, &s.CreatedAt); err != nil {
			return nil, dbx.StoreError(err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.StoreError(err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM signatures
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return dbx.StoreError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.StoreError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signatures`).Scan(&n); err != nil {
		return 0, dbx.StoreError(err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByDateSigned(ctx context.Context, date string) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM signatures WHERE date_signed = $1`
	if err := r.db.QueryRowContext(ctx, query, date).Scan(&n); err != nil {
		return 0, dbx.StoreError(err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByCreator(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT created_by, COUNT(*)
		FROM signatures
		GROUP BY created_by
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbx.StoreError(err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			id string
			n  int64
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, dbx.StoreError(err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.StoreError(err)
	}
	return counts, nil
}

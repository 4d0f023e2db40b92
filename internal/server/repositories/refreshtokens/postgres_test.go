package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mitrasign/internal/common"
)

const (
	userID   = "11111111-1111-4111-8111-111111111111"
	insertQ  = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s+\(user_id,\s*token,\s*expires_at\)\s+VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`
	findQ    = `(?s)^\s*SELECT\s+user_id,\s*expires_at,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s*$`
	deleteQ  = `^DELETE FROM refresh_tokens WHERE token = \$1$`
	expiredQ = `^DELETE FROM refresh_tokens WHERE user_id = \$1 AND expires_at < \$2$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	expires := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		dbErr     error
		wantError error
	}{
		{name: "ok"},
		{name: "db down", dbErr: errors.New("db down"), wantError: common.ErrorTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			exp := mock.ExpectExec(insertQ).WithArgs(userID, "tok123", expires)
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := repo.Create(context.Background(), userID, "tok123", expires)
			if tt.wantError == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantError)
			assert.Contains(t, err.Error(), "db down")
		})
	}
}

func TestFind(t *testing.T) {
	expires := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	created := expires.Add(-24 * time.Hour)

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQ).WithArgs("tok123").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "created_at"}).
				AddRow(userID, expires, created))

		got, err := repo.Find(context.Background(), "tok123")
		require.NoError(t, err)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, "tok123", got.Token)
		assert.True(t, got.Expires.Equal(expires))
		assert.True(t, got.CreatedAt.Equal(created))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQ).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := repo.Find(context.Background(), "missing")
		require.ErrorIs(t, err, common.ErrorNotFound)
		assert.NotErrorIs(t, err, common.ErrorTransient)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQ).WithArgs("tok123").WillReturnError(errors.New("conn reset"))

		_, err := repo.Find(context.Background(), "tok123")
		require.ErrorIs(t, err, common.ErrorTransient)
		assert.NotErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestDelete(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(deleteQ).WithArgs("tok123").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Delete(context.Background(), "tok123"))
	})

	t.Run("unknown token is not an error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(deleteQ).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
		require.NoError(t, repo.Delete(context.Background(), "nope"))
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(deleteQ).WithArgs("tok123").WillReturnError(errors.New("db err"))
		require.ErrorIs(t, repo.Delete(context.Background(), "tok123"), common.ErrorTransient)
	})
}

func TestDeleteExpired(t *testing.T) {
	now := time.Date(2026, 10, 17, 1, 30, 0, 0, time.UTC)

	t.Run("reports removed rows", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(expiredQ).WithArgs(userID, now).WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := repo.DeleteExpired(context.Background(), userID, now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(expiredQ).WithArgs(userID, now).WillReturnError(errors.New("db err"))

		_, err := repo.DeleteExpired(context.Background(), userID, now)
		require.ErrorIs(t, err, common.ErrorTransient)
	})
}

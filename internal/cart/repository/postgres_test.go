package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*PGRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPGRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestGetSnapshot_LocksCartRows(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`FROM cart_items ci .* WHERE ci.user_id = \$1 ORDER BY ci.product_id FOR UPDATE OF ci`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"product_id", "quantity", "external_id", "name", "price", "promo_price",
			"is_promo", "unit", "image_path", "category_name",
		}).AddRow(1, "2", 501, "Rice 5kg", "50", nil, false, "bag", nil, "Groceries"))

	snapshot, err := repo.GetSnapshot(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 1)
	assert.Equal(t, []int64{1}, snapshot.ProductIDs())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClear_OnlySnapshotProducts(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)`)).
		WithArgs("user-1", pq.Array([]int64{1, 2})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Clear(context.Background(), "user-1", []int64{1, 2}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClear_NothingToRemove(t *testing.T) {
	repo, mock := newRepo(t)

	require.NoError(t, repo.Clear(context.Background(), "user-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	repository "github.com/andrewseusebio/Rc-Store/internal/repository/postgres"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDepositRepository_CreditOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresDepositRepository(db)
	ctx := context.Background()

	t.Run("FirstConfirmationCredits", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO deposits`)).
			WithArgs("charge-abc", int64(1), int64(5000), int64(500)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`)).
			WithArgs(int64(5500), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(5500)))
		mock.ExpectCommit()

		applied, err := repo.CreditOnce(ctx, "charge-abc", 1, 5000, 500)
		assert.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RetriedConfirmationIsNoOp", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO deposits`)).
			WithArgs("charge-abc", int64(1), int64(5000), int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		applied, err := repo.CreditOnce(ctx, "charge-abc", 1, 5000, 0)
		assert.NoError(t, err)
		assert.False(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownAccountRollsBack", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO deposits`)).
			WithArgs("charge-xyz", int64(99), int64(5000), int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`)).
			WithArgs(int64(5000), int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectRollback()

		applied, err := repo.CreditOnce(ctx, "charge-xyz", 99, 5000, 0)
		assert.False(t, applied)
		assert.ErrorIs(t, err, pkgerrors.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyChargeID", func(t *testing.T) {
		applied, err := repo.CreditOnce(ctx, "", 1, 5000, 0)
		assert.False(t, applied)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		applied, err := repo.CreditOnce(ctx, "charge-abc", 1, 0, 0)
		assert.False(t, applied)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

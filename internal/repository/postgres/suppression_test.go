package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogenesmendes01/email-gateway/internal/domain"
	"github.com/diogenesmendes01/email-gateway/internal/suppression"
)

func TestSuppressionRepoIsSuppressed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewSuppressionRepo(db)
	got, err := repo.IsSuppressed(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.True(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuppressionRepoUpsertAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO gateway_suppressions`).
		WithArgs(sqlmock.AnyArg(), "user@example.com", "hard_bounce", "dsn", "5.1.1", "user unknown").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSuppressionRepo(db)
	entry := &domain.Suppression{
		Email:     "user@example.com",
		Reason:    domain.ReasonHardBounce,
		Source:    domain.SourceDSN,
		DSNStatus: "5.1.1",
		DSNDiag:   "user unknown",
	}
	require.NoError(t, repo.Upsert(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuppressionRepoRemoveNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM gateway_suppressions`).
		WithArgs("ghost@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSuppressionRepo(db)
	err = repo.Remove(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, suppression.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

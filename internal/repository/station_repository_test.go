package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustAvailableTxAppliesDeltaWithinBounds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stations SET available_points").
		WithArgs(-1, 3, -1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewStationRepo(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	assert.NoError(t, repo.AdjustAvailableTx(context.Background(), tx, 3, -1))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustAvailableTxRefusesOutOfBoundsDelta(t *testing.T) {
	// The guarded WHERE clause matches no row when the delta would push
	// the counter below zero or above charging_points; zero affected
	// rows must surface as ErrConflict so the caller aborts the
	// transaction instead of committing a drifted counter.
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stations SET available_points").
		WithArgs(-1, 3, -1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewStationRepo(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.AdjustAvailableTx(context.Background(), tx, 3, -1)
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

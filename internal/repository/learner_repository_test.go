package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scoresheet-api/internal/models"
)

func TestLearnerRepositoryExistsByLearnerID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLearnerRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("g1", "L001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByLearnerID(context.Background(), "g1", "L001")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLearnerRepositoryInsertSerializesScores(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLearnerRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO learners")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	learner := &models.Learner{GroupID: "g1", LearnerID: "L001", Name: "Ada"}
	require.NoError(t, repo.Insert(context.Background(), learner))
	require.NotEmpty(t, learner.ID)
	require.NotNil(t, learner.Scores, "insert backfills an empty score map")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLearnerRepositoryUpdateScores(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLearnerRepository(db)
	scores := models.ScoreMap{"hw": models.Numeric(42)}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE learners SET scores = $2")).
		WithArgs("row1", scores, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateScores(context.Background(), "row1", scores))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLearnerRepositoryUpdateScoresMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLearnerRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE learners SET scores = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateScores(context.Background(), "ghost", models.ScoreMap{})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLearnerRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLearnerRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM learners")).
		WithArgs("row1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "row1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

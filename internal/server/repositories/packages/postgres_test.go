package packages

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGetByName_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, active, is_desktop_app, is_native_desktop, supplement_id, modify_timestamp\s+FROM package`).
		WithArgs("genesiod").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "name", "active", "is_desktop_app", "is_native_desktop", "supplement_id", "modify_timestamp"}).
			AddRow(int64(3), "genesiod", true, false, true, int64(9), now))

	p, err := repo.GetByName(context.Background(), "genesiod")
	require.NoError(t, err)
	require.Equal(t, int64(3), p.ID)
	require.Equal(t, int64(9), p.SupplementID)
	require.True(t, p.IsNativeDesktop)
}

func TestGetByName_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, .* FROM package`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByName(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreate_ReturnsGeneratedID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO package .* RETURNING id, modify_timestamp`).
		WithArgs("genesiod", true, false, false, int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "modify_timestamp"}).AddRow(int64(12), now))

	p, err := repo.Create(context.Background(), &models.Package{
		Name: "genesiod", Active: true, SupplementID: 9,
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSupplement(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO package_supplement .* RETURNING id, base_name, modify_timestamp`).
		WithArgs("genesiod").
		WillReturnRows(sqlmock.NewRows([]string{"id", "base_name", "modify_timestamp"}).
			AddRow(int64(9), "genesiod", now))

	s, err := repo.CreateSupplement(context.Background(), "genesiod")
	require.NoError(t, err)
	require.Equal(t, int64(9), s.ID)
	require.Equal(t, "genesiod", s.BaseName)
}

func TestAddSupplementModification(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO package_supplement_modification`).
		WithArgs(int64(9), "added icon (image/png, 32px)").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.AddSupplementModification(context.Background(), 9, "added icon (image/png, 32px)")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

package loginattempts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/adb/usermgmt/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestAppend_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+login_attempts\s*\(user_id,\s*success\)\s*VALUES\s*\(\$1,\s*\$2\)\s*$`

	mock.ExpectExec(q).WithArgs(int64(7), false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Append(context.Background(), 7, false); err != nil {
		t.Fatalf("Append error: %v", err)
	}
}

func TestAppend_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+login_attempts`).
		WithArgs(int64(7), true).
		WillReturnError(errors.New("db down"))

	err := repo.Append(context.Background(), 7, true)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestLastFailure_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+MAX\(attempt_time\)\s+FROM\s+login_attempts\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+success\s*=\s*false\s*$`

	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"max"}).AddRow(want)
	mock.ExpectQuery(q).WithArgs(int64(7)).WillReturnRows(rows)

	got, err := repo.LastFailure(context.Background(), 7)
	if err != nil {
		t.Fatalf("LastFailure error: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestLastFailure_NoFailuresOnRecord(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// MAX over an empty set returns a NULL row, not ErrNoRows
	rows := sqlmock.NewRows([]string{"max"}).AddRow(nil)
	mock.ExpectQuery(`SELECT\s+MAX\(attempt_time\)`).
		WithArgs(int64(7)).WillReturnRows(rows)

	_, err := repo.LastFailure(context.Background(), 7)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindRecent_NewestFirst(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*user_id,\s*attempt_time,\s*success\s+FROM\s+login_attempts\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+attempt_time\s*>=\s*\$2\s+ORDER\s+BY\s+attempt_time\s+DESC\s+LIMIT\s+20$`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "attempt_time", "success"}).
		AddRow(int64(3), int64(7), now, false).
		AddRow(int64(2), int64(7), now.Add(-10*time.Second), false).
		AddRow(int64(1), int64(7), now.Add(-20*time.Second), true)
	mock.ExpectQuery(q).WithArgs(int64(7), sqlmock.AnyArg()).WillReturnRows(rows)

	got, err := repo.FindRecent(context.Background(), 7, time.Minute)
	if err != nil {
		t.Fatalf("FindRecent error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 attempts, got %d", len(got))
	}
	if got[0].ID != 3 || got[2].Success != true {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestFindRecent_EmptyIsNotAnError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "attempt_time", "success"})
	mock.ExpectQuery(`SELECT\s+id,\s*user_id,\s*attempt_time,\s*success`).
		WithArgs(int64(7), sqlmock.AnyArg()).WillReturnRows(rows)

	got, err := repo.FindRecent(context.Background(), 7, time.Minute)
	if err != nil {
		t.Fatalf("FindRecent error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty slice, got %v", got)
	}
}

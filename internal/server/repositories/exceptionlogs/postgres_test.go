package exceptionlogs

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/emsuite/authcore/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestInsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+exception_logs\s*\(ts,\s*message,\s*file_name,\s*line_number,\s*status_code\)`).
		WithArgs(ts, "token signing failed", "jwt.go", 42, 500).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ExceptionLog{
		Timestamp:  ts,
		Message:    "token signing failed",
		FileName:   "jwt.go",
		LineNumber: 42,
		StatusCode: 500,
	}
	if err := repo.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+exception_logs`).
		WillReturnError(errors.New("db down"))

	err := repo.Insert(context.Background(), &models.ExceptionLog{Message: "m"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestEvictOldest(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+exception_logs\s+WHERE\s+id\s+NOT\s+IN\s*\(SELECT\s+id\s+FROM\s+exception_logs\s+ORDER\s+BY\s+id\s+DESC\s+LIMIT\s+\$1\)`).
		WithArgs(1000).
		WillReturnResult(sqlmock.NewResult(0, 17))

	if err := repo.EvictOldest(context.Background(), 1000); err != nil {
		t.Fatalf("EvictOldest error: %v", err)
	}
}

func TestCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)\s+FROM\s+exception_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 rows, got %d", n)
	}
}

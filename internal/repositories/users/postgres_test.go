package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/vmalyshev/authcore/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows(id, username string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role", "status", "email_verified",
		"failed_login_attempts", "locked_until", "remember_token_hash", "last_login_at", "created_at",
	}).AddRow(id, username, "a@x.com", "hash", "author", "active", true,
		0, nil, nil, nil, time.Now())
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`

	mock.ExpectQuery(q).
		WithArgs("alice").
		WillReturnRows(userRows("u1", "alice"))

	got, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "u1" || got.Username != "alice" || got.Role != "author" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`

	mock.ExpectQuery(q).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByRememberTokenHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+users\s+WHERE\s+remember_token_hash\s*=\s*\$1\s*$`

	mock.ExpectQuery(q).
		WithArgs("abc123").
		WillReturnRows(userRows("u1", "alice"))

	got, err := repo.GetByRememberTokenHash(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestIncrementFailedLoginAttempts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+failed_login_attempts\s*=\s*failed_login_attempts\s*\+\s*1\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+failed_login_attempts\s*$`

	mock.ExpectQuery(q).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}).AddRow(5))

	count, err := repo.IncrementFailedLoginAttempts(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Fatalf("want 5, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIncrementFailedLoginAttempts_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+failed_login_attempts\b`

	mock.ExpectQuery(q).
		WithArgs("u1").
		WillReturnError(errors.New("db down"))

	_, err := repo.IncrementFailedLoginAttempts(context.Background(), "u1")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestResetFailedLoginAttempts_ClearsLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+failed_login_attempts\s*=\s*0,\s*locked_until\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ResetFailedLoginAttempts(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetLockedUntil(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+locked_until\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`

	until := time.Now().Add(15 * time.Minute)
	mock.ExpectExec(q).
		WithArgs("u1", until).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetLockedUntil(context.Background(), "u1", until); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateRememberTokenHash_Clear(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+remember_token_hash\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).
		WithArgs("u1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateRememberTokenHash(context.Background(), "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarkEmailVerified_PromotesInactive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+email_verified\s*=\s*TRUE,.*CASE\s+WHEN\s+status\s*=\s*'inactive'\s+THEN\s+'active'\s+ELSE\s+status\s+END.*WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkEmailVerified(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

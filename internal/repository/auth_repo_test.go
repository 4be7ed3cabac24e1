package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockUsers(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewUserRepository(db), mock
}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name    string
		expect  func(sqlmock.Sqlmock)
		wantID  int
		wantErr string
	}{
		{
			name: "success",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(upsertUserSQL)).
					WithArgs("gatekeeper", "h1").
					WillReturnResult(sqlmock.NewResult(3, 1))
			},
			wantID: 3,
		},
		{
			name: "exec error",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(upsertUserSQL)).
					WithArgs("gatekeeper", "h1").
					WillReturnError(errors.New("disk I/O error"))
			},
			wantErr: "insert user",
		},
		{
			name: "last insert id error",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(upsertUserSQL)).
					WithArgs("gatekeeper", "h1").
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no id")))
			},
			wantErr: "get last insert id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockUsers(t)
			tt.expect(mock)

			id, err := repo.Create(context.Background(), "gatekeeper", "h1")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID {
				t.Fatalf("id = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newMockUsers(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("gatekeeper").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(7, "gatekeeper", "h1"))

		u, err := repo.GetByUsername(context.Background(), "gatekeeper")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u == nil || u.ID != 7 || u.PasswordHash != "h1" {
			t.Fatalf("unexpected user %+v", u)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockUsers(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("nobody").
			WillReturnError(sql.ErrNoRows)

		u, err := repo.GetByUsername(context.Background(), "nobody")
		if err != nil || u != nil {
			t.Fatalf("expected (nil, nil), got (%+v, %v)", u, err)
		}
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newMockUsers(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("gatekeeper").
			WillReturnError(errors.New("database is locked"))

		if _, err := repo.GetByUsername(context.Background(), "gatekeeper"); err == nil || !strings.Contains(err.Error(), "select user") {
			t.Fatalf("expected wrapped error, got %v", err)
		}
	})
}

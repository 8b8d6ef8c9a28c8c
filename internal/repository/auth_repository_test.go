package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"mib/internal/models"
)

// ============================================================
// AuthRepository Tests
// ============================================================

func TestAuthRepositoryCreateLoginToken(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO login_tokens`).
		WithArgs("alice@example.com", "hashed", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(12, now))

	repo := NewAuthRepository(db)
	token := &models.LoginToken{
		Email:     "alice@example.com",
		TokenHash: "hashed",
		ExpiresAt: now.Add(15 * time.Minute),
	}
	if err := repo.CreateLoginToken(context.Background(), token); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if token.ID != 12 {
		t.Errorf("expected token id 12, got %d", token.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAuthRepositoryGetLoginToken(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		id          int64
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "success",
			id:   12,
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "email", "token_hash", "expires_at", "used", "created_at"}).
					AddRow(12, "alice@example.com", "hashed", now.Add(15*time.Minute), false, now)
				mock.ExpectQuery(`SELECT .+ FROM login_tokens WHERE id = \$1`).
					WithArgs(int64(12)).
					WillReturnRows(rows)
			},
			expectError: nil,
		},
		{
			name: "not found",
			id:   99,
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM login_tokens WHERE id = \$1`).
					WithArgs(int64(99)).
					WillReturnError(sql.ErrNoRows)
			},
			expectError: ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewAuthRepository(db)
			token, err := repo.GetLoginToken(context.Background(), tt.id)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if token.Email != "alice@example.com" || token.Used {
					t.Errorf("unexpected token: %+v", token)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestAuthRepositoryMarkTokenUsed(t *testing.T) {
	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "marks fresh token",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE login_tokens SET used = TRUE WHERE id = \$1 AND used = FALSE`).
					WithArgs(int64(12)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			expectError: nil,
		},
		{
			// already-used token matches zero rows: the second
			// presentation of the same link loses
			name: "already used",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE login_tokens SET used = TRUE WHERE id = \$1 AND used = FALSE`).
					WithArgs(int64(12)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectError: ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewAuthRepository(db)
			err = repo.MarkTokenUsed(context.Background(), 12)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestAuthRepositorySessions(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(int64(1), "hashed", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, now))

	rows := sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at"}).
		AddRow(5, 1, "hashed", now.Add(time.Hour), now)
	mock.ExpectQuery(`SELECT .+ FROM sessions WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	repo := NewAuthRepository(db)

	session := &models.Session{UserID: 1, TokenHash: "hashed", ExpiresAt: now.Add(time.Hour)}
	if err := repo.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession: unexpected error: %v", err)
	}
	if session.ID != 5 {
		t.Errorf("expected session id 5, got %d", session.ID)
	}

	got, err := repo.GetSession(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetSession: unexpected error: %v", err)
	}
	if got.UserID != 1 || got.TokenHash != "hashed" {
		t.Errorf("unexpected session: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAuthRepositoryDeleteExpired(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM login_tokens WHERE expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAuthRepository(db)
	if err := repo.DeleteExpired(context.Background(), now); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"mib/internal/models"
)

// ============================================================
// PriceRepository Tests
// ============================================================

func TestPriceRepositoryUpsert(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO price_snapshots .+ ON CONFLICT \(symbol\) DO UPDATE`).
		WithArgs("BTC", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPriceRepository(db)
	err = repo.Upsert(context.Background(), &models.PriceSnapshot{
		Symbol:    "BTC",
		PriceUSD:  decimal.NewFromInt(115000),
		FetchedAt: now,
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPriceRepositoryGet(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		symbol      string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name:   "success",
			symbol: "BTC",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"symbol", "price_usd", "fetched_at"}).
					AddRow("BTC", "115000", now)
				mock.ExpectQuery(`SELECT .+ FROM price_snapshots WHERE symbol = \$1`).
					WithArgs("BTC").
					WillReturnRows(rows)
			},
			expectError: nil,
		},
		{
			name:   "not found",
			symbol: "XAU",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM price_snapshots WHERE symbol = \$1`).
					WithArgs("XAU").
					WillReturnError(sql.ErrNoRows)
			},
			expectError: ErrSnapshotNotFound,
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

			repo := NewPriceRepository(db)
			result, err := repo.Get(context.Background(), tt.symbol)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if result.PriceUSD.IntPart() != 115000 {
					t.Errorf("expected price 115000, got %s", result.PriceUSD)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

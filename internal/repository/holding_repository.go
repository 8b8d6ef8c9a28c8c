package repository

import (
	"context"
	"database/sql"
	"errors"

	"mib/internal/models"
)

// Ошибки репозитория балансов
var (
	ErrHoldingNotFound = errors.New("holding not found")
)

// HoldingRepository - чтение таблицы holdings.
// Изменение балансов выполняется только торговым движком через
// LedgerRepository внутри транзакции сделки.
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository создает новый экземпляр репозитория
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// GetByUser возвращает все балансы пользователя
func (r *HoldingRepository) GetByUser(ctx context.Context, userID int64) ([]*models.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, asset, amount, updated_at
		FROM holdings
		WHERE user_id = $1
		ORDER BY asset ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		h := &models.Holding{}
		if err := rows.Scan(&h.ID, &h.UserID, &h.Asset, &h.Amount, &h.UpdatedAt); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return holdings, nil
}

// Get возвращает баланс одного актива
func (r *HoldingRepository) Get(ctx context.Context, userID int64, asset string) (*models.Holding, error) {
	h := &models.Holding{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, asset, amount, updated_at
		FROM holdings
		WHERE user_id = $1 AND asset = $2`,
		userID, asset,
	).Scan(&h.ID, &h.UserID, &h.Asset, &h.Amount, &h.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHoldingNotFound
		}
		return nil, err
	}

	return h, nil
}

package repository

import (
	"context"
	"database/sql"

	"mib/internal/models"
)

// TradeRepository - чтение таблицы trades.
// Записи создаются только торговым движком через LedgerRepository;
// история неизменяема.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

const tradeColumns = `id, user_id, from_asset, to_asset, from_amount, to_amount,
	from_price_usd, to_price_usd, created_at`

func scanTrades(rows *sql.Rows) ([]*models.Trade, error) {
	var trades []*models.Trade
	for rows.Next() {
		t := &models.Trade{}
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.FromAsset,
			&t.ToAsset,
			&t.FromAmount,
			&t.ToAmount,
			&t.FromPriceUSD,
			&t.ToPriceUSD,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetRecentByUser возвращает последние сделки пользователя
// (новые сверху) - для отображения истории.
func (r *TradeRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetChronological возвращает всю историю сделок пользователя в
// хронологическом порядке - для проигрывания и восстановления
// балансов.
func (r *TradeRepository) GetChronological(ctx context.Context, userID int64) ([]*models.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

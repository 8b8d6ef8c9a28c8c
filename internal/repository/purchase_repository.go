package repository

import (
	"context"
	"database/sql"

	"mib/internal/models"
)

// PurchaseRepository - чтение таблицы purchases (лотов).
// Создание лотов и обновление consumed выполняются только торговым
// движком через LedgerRepository внутри транзакции сделки.
type PurchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository создает новый экземпляр репозитория
func NewPurchaseRepository(db *sql.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

const purchaseColumns = `id, user_id, asset, amount, consumed, btc_spent,
	btc_price_usd, asset_price_usd, locked_until, created_at`

func scanPurchases(rows *sql.Rows) ([]*models.Purchase, error) {
	var lots []*models.Purchase
	for rows.Next() {
		p := &models.Purchase{}
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Asset,
			&p.Amount,
			&p.Consumed,
			&p.BTCSpent,
			&p.BTCPriceUSD,
			&p.AssetPriceUSD,
			&p.LockedUntil,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		lots = append(lots, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lots, nil
}

// GetOpenByUserAsset возвращает открытые (не полностью проданные) лоты
// пользователя по активу в порядке покупки - порядок FIFO-списания.
func (r *PurchaseRepository) GetOpenByUserAsset(ctx context.Context, userID int64, asset string) ([]*models.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE user_id = $1 AND asset = $2 AND consumed < amount
		ORDER BY created_at ASC`,
		userID, asset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// GetOpenByUser возвращает все открытые лоты пользователя
// в порядке покупки.
func (r *PurchaseRepository) GetOpenByUser(ctx context.Context, userID int64) ([]*models.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE user_id = $1 AND consumed < amount
		ORDER BY created_at ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPurchases(rows)
}

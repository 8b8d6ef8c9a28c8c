package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mib/internal/models"
)

// LedgerRepository - транзакционная запись сделок. Все изменения
// балансов, лотов и истории одной сделки проходят в одной транзакции
// PostgreSQL; параллельные сделки одного пользователя сериализуются
// блокировками SELECT ... FOR UPDATE.
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository создает новый экземпляр репозитория
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Tx - операции, доступные внутри транзакции сделки.
// Интерфейс позволяет подменять транзакцию моком в тестах сервисов.
type Tx interface {
	HoldingForUpdate(ctx context.Context, userID int64, asset string) (*models.Holding, error)
	AdjustHolding(ctx context.Context, userID int64, asset string, delta int64) (int64, error)
	OpenLotsForUpdate(ctx context.Context, userID int64, asset string) ([]*models.Purchase, error)
	InsertPurchase(ctx context.Context, p *models.Purchase) error
	SetLotConsumed(ctx context.Context, lotID int64, consumed int64) error
	InsertTrade(ctx context.Context, trade *models.Trade) error
	DeleteUserLedger(ctx context.Context, userID int64) error
	TradesChronological(ctx context.Context, userID int64) ([]*models.Trade, error)
}

// LedgerTx - реализация Tx поверх *sql.Tx
type LedgerTx struct {
	tx *sql.Tx
}

var _ Tx = (*LedgerTx)(nil)

// WithTx выполняет fn внутри транзакции. При ошибке fn транзакция
// откатывается и изменения не видны; иначе - фиксируется.
func (r *LedgerRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&LedgerTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

// HoldingForUpdate читает баланс актива под блокировкой FOR UPDATE.
// Параллельная сделка того же пользователя по тому же активу будет
// ждать завершения текущей транзакции. Возвращает ErrHoldingNotFound,
// если записи баланса нет.
func (t *LedgerTx) HoldingForUpdate(ctx context.Context, userID int64, asset string) (*models.Holding, error) {
	h := &models.Holding{}
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, asset, amount, updated_at
		FROM holdings
		WHERE user_id = $1 AND asset = $2
		FOR UPDATE`,
		userID, asset,
	).Scan(&h.ID, &h.UserID, &h.Asset, &h.Amount, &h.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrHoldingNotFound
		}
		return nil, err
	}

	return h, nil
}

// AdjustHolding изменяет баланс актива на delta (может быть
// отрицательным), создавая запись при первом касании актива.
// Ограничение CHECK (amount >= 0) в схеме не дает балансу уйти
// в минус даже при ошибке в вызывающем коде.
func (t *LedgerTx) AdjustHolding(ctx context.Context, userID int64, asset string, delta int64) (int64, error) {
	var amount int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO holdings (user_id, asset, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, asset) DO UPDATE SET
			amount = holdings.amount + EXCLUDED.amount,
			updated_at = now()
		RETURNING amount`,
		userID, asset, delta,
	).Scan(&amount)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust holding: %w", err)
	}
	return amount, nil
}

// OpenLotsForUpdate читает открытые лоты актива в порядке покупки
// под блокировкой FOR UPDATE.
func (t *LedgerTx) OpenLotsForUpdate(ctx context.Context, userID int64, asset string) ([]*models.Purchase, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE user_id = $1 AND asset = $2 AND consumed < amount
		ORDER BY created_at ASC
		FOR UPDATE`,
		userID, asset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// InsertPurchase создает новый лот покупки
func (t *LedgerTx) InsertPurchase(ctx context.Context, p *models.Purchase) error {
	return t.tx.QueryRowContext(ctx, `
		INSERT INTO purchases (user_id, asset, amount, consumed, btc_spent,
			btc_price_usd, asset_price_usd, locked_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		p.UserID, p.Asset, p.Amount, p.Consumed, p.BTCSpent,
		p.BTCPriceUSD, p.AssetPriceUSD, p.LockedUntil, p.CreatedAt,
	).Scan(&p.ID)
}

// SetLotConsumed записывает новое значение consumed для лота
func (t *LedgerTx) SetLotConsumed(ctx context.Context, lotID int64, consumed int64) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE purchases SET consumed = $1 WHERE id = $2`, consumed, lotID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("purchase lot %d not found", lotID)
	}

	return nil
}

// InsertTrade записывает сделку в историю
func (t *LedgerTx) InsertTrade(ctx context.Context, trade *models.Trade) error {
	return t.tx.QueryRowContext(ctx, `
		INSERT INTO trades (user_id, from_asset, to_asset, from_amount,
			to_amount, from_price_usd, to_price_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		trade.UserID, trade.FromAsset, trade.ToAsset, trade.FromAmount,
		trade.ToAmount, trade.FromPriceUSD, trade.ToPriceUSD, trade.CreatedAt,
	).Scan(&trade.ID)
}

// DeleteUserLedger удаляет лоты и балансы пользователя. Используется
// только при восстановлении состояния из истории сделок; сама история
// не трогается.
func (t *LedgerTx) DeleteUserLedger(ctx context.Context, userID int64) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM purchases WHERE user_id = $1`, userID); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM holdings WHERE user_id = $1`, userID)
	return err
}

// TradesChronological читает историю сделок пользователя внутри
// транзакции - для восстановления состояния.
func (t *LedgerTx) TradesChronological(ctx context.Context, userID int64) ([]*models.Trade, error) {
	rows, err := t.tx.QueryContext(ctx, `
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

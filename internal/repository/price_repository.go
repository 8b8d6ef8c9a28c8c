package repository

import (
	"context"
	"database/sql"
	"errors"

	"mib/internal/models"
)

// Ошибки репозитория снимков цен
var (
	ErrSnapshotNotFound = errors.New("price snapshot not found")
)

// PriceRepository - кэш последних известных цен в таблице
// price_snapshots. Используется оракулом как запасной источник, когда
// внешний API недоступен.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository создает новый экземпляр репозитория
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Upsert сохраняет снимок цены, заменяя предыдущий для того же символа
func (r *PriceRepository) Upsert(ctx context.Context, snapshot *models.PriceSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_snapshots (symbol, price_usd, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET
			price_usd = EXCLUDED.price_usd,
			fetched_at = EXCLUDED.fetched_at`,
		snapshot.Symbol, snapshot.PriceUSD, snapshot.FetchedAt)
	return err
}

// Get возвращает последний сохраненный снимок цены
func (r *PriceRepository) Get(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	s := &models.PriceSnapshot{}
	err := r.db.QueryRowContext(ctx, `
		SELECT symbol, price_usd, fetched_at
		FROM price_snapshots
		WHERE symbol = $1`,
		symbol,
	).Scan(&s.Symbol, &s.PriceUSD, &s.FetchedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	return s, nil
}

package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mib/internal/metrics"
	"mib/internal/models"
	"mib/pkg/retry"
)

// ErrPriceUnavailable - цену не удалось получить ни из одного
// источника
var ErrPriceUnavailable = errors.New("price unavailable")

// PriceFetcher - источник живых цен (HTTP клиент в продакшене,
// мок в тестах)
type PriceFetcher interface {
	FetchPriceUSD(ctx context.Context, oracleID string) (decimal.Decimal, error)
}

// SnapshotStore - хранилище последних известных цен
type SnapshotStore interface {
	Upsert(ctx context.Context, snapshot *models.PriceSnapshot) error
	Get(ctx context.Context, symbol string) (*models.PriceSnapshot, error)
}

// Config - настройки оракула
type Config struct {
	// DefaultBTCPriceUSD - цена BTC на случай, когда недоступны и
	// API, и снимок. Позволяет новым пользователям торговать сразу
	// после развертывания пустой базы.
	DefaultBTCPriceUSD decimal.Decimal

	// SnapshotMaxAge - максимальный возраст снимка, пригодного
	// как запасной источник. 0 = без ограничения.
	SnapshotMaxAge time.Duration

	// Retry - параметры повторных попыток обращения к API
	Retry retry.Config
}

// Oracle выдает цены активов в USD с деградацией по цепочке
// источников: живой API -> снимок из БД -> цена по умолчанию (только
// BTC). Все цены нормализованы к целой единице актива (за BTC, за
// акцию, за тройскую унцию).
type Oracle struct {
	fetcher   PriceFetcher
	snapshots SnapshotStore
	cfg       Config
	logger    *zap.Logger
}

// New создает оракул цен
func New(fetcher PriceFetcher, snapshots SnapshotStore, cfg Config, logger *zap.Logger) *Oracle {
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	cfg.Retry.RetryIf = retry.IsRetryable

	return &Oracle{
		fetcher:   fetcher,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger,
	}
}

// GetPriceUSD возвращает цену одной целой единицы актива в USD.
// Возвращает ErrPriceUnavailable, когда все источники исчерпаны.
func (o *Oracle) GetPriceUSD(ctx context.Context, asset models.Asset) (decimal.Decimal, error) {
	price, err := o.fetchLive(ctx, asset)
	if err == nil {
		metrics.PriceFetches.WithLabelValues("live", "ok").Inc()
		o.saveSnapshot(ctx, asset.Symbol, price)
		return price, nil
	}

	metrics.PriceFetches.WithLabelValues("live", "error").Inc()
	o.logger.Warn("live price fetch failed, falling back to snapshot",
		zap.String("asset", asset.Symbol),
		zap.Error(err))

	snapshot, snapErr := o.snapshots.Get(ctx, asset.Symbol)
	if snapErr == nil && o.snapshotUsable(snapshot) {
		metrics.PriceFetches.WithLabelValues("snapshot", "ok").Inc()
		return snapshot.PriceUSD, nil
	}
	metrics.PriceFetches.WithLabelValues("snapshot", "error").Inc()

	if asset.Symbol == models.SymbolBTC && o.cfg.DefaultBTCPriceUSD.IsPositive() {
		metrics.PriceFetches.WithLabelValues("default", "ok").Inc()
		o.logger.Warn("serving default BTC price",
			zap.String("price_usd", o.cfg.DefaultBTCPriceUSD.String()))
		return o.cfg.DefaultBTCPriceUSD, nil
	}

	return decimal.Zero, ErrPriceUnavailable
}

// fetchLive запрашивает цену из API с повторными попытками и
// нормализует ее к целой единице актива
func (o *Oracle) fetchLive(ctx context.Context, asset models.Asset) (decimal.Decimal, error) {
	start := time.Now()
	price, err := retry.DoWithResult(ctx, func() (decimal.Decimal, error) {
		return o.fetcher.FetchPriceUSD(ctx, asset.OracleID)
	}, o.cfg.Retry)
	metrics.PriceFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return decimal.Zero, err
	}

	// Золото API котирует за грамм, внутри приложения единица -
	// тройская унция
	if asset.QuotedPerGram {
		price = price.Mul(decimal.NewFromFloat(models.GramsPerTroyOunce))
	}

	if !price.IsPositive() {
		return decimal.Zero, errors.New("non-positive price from api")
	}

	return price, nil
}

// saveSnapshot сохраняет цену как запасной источник. Ошибка записи
// не мешает отдать цену - только логируется.
func (o *Oracle) saveSnapshot(ctx context.Context, symbol string, price decimal.Decimal) {
	err := o.snapshots.Upsert(ctx, &models.PriceSnapshot{
		Symbol:    symbol,
		PriceUSD:  price,
		FetchedAt: time.Now().UTC(),
	})
	if err != nil {
		o.logger.Warn("failed to save price snapshot",
			zap.String("asset", symbol),
			zap.Error(err))
	}
}

func (o *Oracle) snapshotUsable(s *models.PriceSnapshot) bool {
	if !s.PriceUSD.IsPositive() {
		return false
	}
	if o.cfg.SnapshotMaxAge <= 0 {
		return true
	}
	return time.Since(s.FetchedAt) <= o.cfg.SnapshotMaxAge
}

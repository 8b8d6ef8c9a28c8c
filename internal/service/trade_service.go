package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mib/internal/ledger"
	"mib/internal/metrics"
	"mib/internal/models"
	"mib/internal/oracle"
	"mib/internal/repository"
)

// TradeService - торговый движок. Все сделки идут через BTC:
// покупка актива тратит сатоши, продажа возвращает сатоши.
// Каждая покупка создает лот с 24-часовой блокировкой продажи;
// продажи списывают лоты по FIFO.
//
// Исполнение атомарно: балансы, лоты и запись истории меняются в
// одной транзакции БД, параллельные сделки пользователя
// сериализуются блокировками строк.
type TradeService struct {
	ledgerRepo   LedgerRepositoryInterface
	purchaseRepo PurchaseRepositoryInterface
	tradeRepo    TradeRepositoryInterface
	oracle       PriceOracleInterface
	logger       *zap.Logger
}

// NewTradeService создает новый экземпляр TradeService
func NewTradeService(
	ledgerRepo LedgerRepositoryInterface,
	purchaseRepo PurchaseRepositoryInterface,
	tradeRepo TradeRepositoryInterface,
	priceOracle PriceOracleInterface,
	logger *zap.Logger,
) *TradeService {
	return &TradeService{
		ledgerRepo:   ledgerRepo,
		purchaseRepo: purchaseRepo,
		tradeRepo:    tradeRepo,
		oracle:       priceOracle,
		logger:       logger,
	}
}

// TradeResult - итог исполненной сделки
type TradeResult struct {
	Trade *models.Trade `json:"trade"`

	// BTCBalance, AssetBalance - балансы после сделки
	BTCBalance   int64 `json:"btc_balance_sats"`
	AssetBalance int64 `json:"asset_balance"`

	// CostBasisSats, RealizedPnLSats - только для продажи:
	// себестоимость проданного объема и реализованный результат
	CostBasisSats   int64 `json:"cost_basis_sats,omitempty"`
	RealizedPnLSats int64 `json:"realized_pnl_sats,omitempty"`
}

// TradePreview - расчет сделки без исполнения. Считается тем же
// кодом, что и исполнение: предпросмотр при неизменных ценах и
// лотах совпадает с фактом.
type TradePreview struct {
	Side          string          `json:"side"`
	Asset         string          `json:"asset"`
	FromAmount    int64           `json:"from_amount"`
	ToAmount      int64           `json:"to_amount"`
	BTCPriceUSD   decimal.Decimal `json:"btc_price_usd"`
	AssetPriceUSD decimal.Decimal `json:"asset_price_usd"`

	// CostBasisSats, RealizedPnLSats - только для продажи
	CostBasisSats   int64 `json:"cost_basis_sats,omitempty"`
	RealizedPnLSats int64 `json:"realized_pnl_sats,omitempty"`
}

// LockStatus - состояние блокировок по активу
type LockStatus struct {
	Asset      string     `json:"asset"`
	Unlocked   int64      `json:"unlocked"`
	Locked     int64      `json:"locked"`
	NextUnlock *time.Time `json:"next_unlock,omitempty"`
}

// TradeRecord - сделка в истории глазами пользователя
type TradeRecord struct {
	ID            int64           `json:"id"`
	Side          string          `json:"side"`
	Asset         string          `json:"asset"`
	AssetAmount   int64           `json:"asset_amount"`
	BTCAmountSats int64           `json:"btc_amount_sats"`
	BTCPriceUSD   decimal.Decimal `json:"btc_price_usd"`
	AssetPriceUSD decimal.Decimal `json:"asset_price_usd"`
	CreatedAt     time.Time       `json:"created_at"`
}

// lookupTradeable возвращает актив, который можно купить или продать
// за BTC. Сам BTC торговать нельзя - он базовая валюта.
func lookupTradeable(symbol string) (models.Asset, error) {
	if symbol == models.SymbolBTC {
		return models.Asset{}, &UnsupportedAssetError{Symbol: symbol}
	}
	asset, ok := models.LookupAsset(symbol)
	if !ok {
		return models.Asset{}, &UnsupportedAssetError{Symbol: symbol}
	}
	return asset, nil
}

// fetchPrices возвращает цены BTC и актива в USD
func (s *TradeService) fetchPrices(ctx context.Context, asset models.Asset) (btc, unit decimal.Decimal, err error) {
	btcAsset, _ := models.LookupAsset(models.SymbolBTC)

	btc, err = s.oracle.GetPriceUSD(ctx, btcAsset)
	if err != nil {
		return decimal.Zero, decimal.Zero, s.mapPriceErr(err)
	}

	unit, err = s.oracle.GetPriceUSD(ctx, asset)
	if err != nil {
		return decimal.Zero, decimal.Zero, s.mapPriceErr(err)
	}

	return btc, unit, nil
}

func (s *TradeService) mapPriceErr(err error) error {
	if errors.Is(err, oracle.ErrPriceUnavailable) {
		return ErrPriceUnavailable
	}
	return err
}

// ExecuteBuy покупает актив за btcAmountSats сатоши по текущим ценам.
// Купленный объем блокируется от продажи на 24 часа.
func (s *TradeService) ExecuteBuy(ctx context.Context, userID int64, symbol string, btcAmountSats int64) (*TradeResult, error) {
	if btcAmountSats <= 0 {
		metrics.TradeRejections.WithLabelValues("validation").Inc()
		return nil, NewValidationError("btc amount must be positive, got %d", btcAmountSats)
	}

	asset, err := lookupTradeable(symbol)
	if err != nil {
		metrics.TradeRejections.WithLabelValues("validation").Inc()
		return nil, err
	}

	btcPrice, assetPrice, err := s.fetchPrices(ctx, asset)
	if err != nil {
		if errors.Is(err, ErrPriceUnavailable) {
			metrics.TradeRejections.WithLabelValues("price_unavailable").Inc()
		}
		return nil, err
	}

	toAmount, err := ledger.Convert(btcAmountSats, btcPrice, assetPrice, models.SatsPerBTC, asset.UnitScale)
	if err != nil {
		metrics.TradeRejections.WithLabelValues("validation").Inc()
		return nil, NewValidationError("cannot convert amount: %v", err)
	}
	if toAmount == 0 {
		metrics.TradeRejections.WithLabelValues("validation").Inc()
		return nil, NewValidationError("amount too small: %d sats buys zero units of %s", btcAmountSats, symbol)
	}

	now := time.Now().UTC()
	start := now
	result := &TradeResult{}

	err = s.ledgerRepo.WithTx(ctx, func(tx repository.Tx) error {
		holding, err := tx.HoldingForUpdate(ctx, userID, models.SymbolBTC)
		if err != nil {
			if errors.Is(err, repository.ErrHoldingNotFound) {
				return ErrNotFound
			}
			return err
		}

		if holding.Amount < btcAmountSats {
			return &InsufficientBalanceError{
				Asset:     models.SymbolBTC,
				Available: holding.Amount,
				Requested: btcAmountSats,
			}
		}

		btcBalance, err := tx.AdjustHolding(ctx, userID, models.SymbolBTC, -btcAmountSats)
		if err != nil {
			return err
		}
		assetBalance, err := tx.AdjustHolding(ctx, userID, symbol, toAmount)
		if err != nil {
			return err
		}

		lot := &models.Purchase{
			UserID:        userID,
			Asset:         symbol,
			Amount:        toAmount,
			Consumed:      0,
			BTCSpent:      btcAmountSats,
			BTCPriceUSD:   btcPrice,
			AssetPriceUSD: assetPrice,
			LockedUntil:   now.Add(models.LockPeriod),
			CreatedAt:     now,
		}
		if err := tx.InsertPurchase(ctx, lot); err != nil {
			return err
		}

		trade := &models.Trade{
			UserID:       userID,
			FromAsset:    models.SymbolBTC,
			ToAsset:      symbol,
			FromAmount:   btcAmountSats,
			ToAmount:     toAmount,
			FromPriceUSD: btcPrice,
			ToPriceUSD:   assetPrice,
			CreatedAt:    now,
		}
		if err := tx.InsertTrade(ctx, trade); err != nil {
			return err
		}

		result.Trade = trade
		result.BTCBalance = btcBalance
		result.AssetBalance = assetBalance
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			metrics.TradeRejections.WithLabelValues("insufficient_balance").Inc()
		}
		return nil, err
	}

	metrics.TradesTotal.WithLabelValues(symbol, models.TradeSideBuy).Inc()
	metrics.TradeExecutionDuration.WithLabelValues(models.TradeSideBuy).Observe(time.Since(start).Seconds())
	s.logger.Info("buy executed",
		zap.Int64("user_id", userID),
		zap.String("asset", symbol),
		zap.Int64("sats_spent", btcAmountSats),
		zap.Int64("units_bought", toAmount))

	return result, nil
}

// ExecuteSell продает assetAmount минимальных единиц актива за BTC.
// Продаются только разблокированные лоты, по FIFO; себестоимость
// считается pro-rata от затраченных на лот сатоши.
func (s *TradeService) ExecuteSell(ctx context.Context, userID int64, symbol string, assetAmount int64) (*TradeResult, error) {
	if assetAmount <= 0 {
		metrics.TradeRejections.WithLabelValues("validation").Inc()
		return nil, NewValidationError("asset amount must be positive, got %d", assetAmount)
	}

	asset, err := lookupTradeable(symbol)
	if err != nil {
		metrics.TradeRejections.WithLabelValues("validation").Inc()
		return nil, err
	}

	btcPrice, assetPrice, err := s.fetchPrices(ctx, asset)
	if err != nil {
		if errors.Is(err, ErrPriceUnavailable) {
			metrics.TradeRejections.WithLabelValues("price_unavailable").Inc()
		}
		return nil, err
	}

	btcOut, err := ledger.Convert(assetAmount, assetPrice, btcPrice, asset.UnitScale, models.SatsPerBTC)
	if err != nil {
		metrics.TradeRejections.WithLabelValues("validation").Inc()
		return nil, NewValidationError("cannot convert amount: %v", err)
	}
	if btcOut == 0 {
		metrics.TradeRejections.WithLabelValues("validation").Inc()
		return nil, NewValidationError("amount too small: %d units of %s sells for zero sats", assetAmount, symbol)
	}

	now := time.Now().UTC()
	start := now
	result := &TradeResult{}

	err = s.ledgerRepo.WithTx(ctx, func(tx repository.Tx) error {
		lots, err := tx.OpenLotsForUpdate(ctx, userID, symbol)
		if err != nil {
			return err
		}

		plan, err := ledger.ConsumeFIFO(lots, assetAmount, now)
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientUnlocked) {
				return s.sellRejection(lots, symbol, assetAmount, now)
			}
			return err
		}

		assetBalance, err := tx.AdjustHolding(ctx, userID, symbol, -assetAmount)
		if err != nil {
			return err
		}
		btcBalance, err := tx.AdjustHolding(ctx, userID, models.SymbolBTC, btcOut)
		if err != nil {
			return err
		}

		for _, c := range plan.Consumptions {
			if err := tx.SetLotConsumed(ctx, c.LotID, c.NewConsumed); err != nil {
				return err
			}
		}

		trade := &models.Trade{
			UserID:       userID,
			FromAsset:    symbol,
			ToAsset:      models.SymbolBTC,
			FromAmount:   assetAmount,
			ToAmount:     btcOut,
			FromPriceUSD: assetPrice,
			ToPriceUSD:   btcPrice,
			CreatedAt:    now,
		}
		if err := tx.InsertTrade(ctx, trade); err != nil {
			return err
		}

		result.Trade = trade
		result.BTCBalance = btcBalance
		result.AssetBalance = assetBalance
		result.CostBasisSats = plan.CostBasisSats
		result.RealizedPnLSats = btcOut - plan.CostBasisSats
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAssetLocked):
			metrics.TradeRejections.WithLabelValues("asset_locked").Inc()
		case errors.Is(err, ErrInsufficientBalance):
			metrics.TradeRejections.WithLabelValues("insufficient_balance").Inc()
		}
		return nil, err
	}

	metrics.TradesTotal.WithLabelValues(symbol, models.TradeSideSell).Inc()
	metrics.TradeExecutionDuration.WithLabelValues(models.TradeSideSell).Observe(time.Since(start).Seconds())
	s.logger.Info("sell executed",
		zap.Int64("user_id", userID),
		zap.String("asset", symbol),
		zap.Int64("units_sold", assetAmount),
		zap.Int64("sats_received", btcOut),
		zap.Int64("realized_pnl_sats", result.RealizedPnLSats))

	return result, nil
}

// sellRejection различает нехватку актива как такового и нехватку
// из-за блокировки: во втором случае пользователю сообщается, когда
// ближайший лот разблокируется.
func (s *TradeService) sellRejection(lots []*models.Purchase, symbol string, requested int64, now time.Time) error {
	total := ledger.TotalRemaining(lots)
	unlocked := ledger.UnlockedRemaining(lots, now)

	if total >= requested {
		return &AssetLockedError{
			Asset:      symbol,
			Unlocked:   unlocked,
			Locked:     total - unlocked,
			Requested:  requested,
			NextUnlock: ledger.NextUnlock(lots, now),
		}
	}

	return &InsufficientBalanceError{
		Asset:     symbol,
		Available: total,
		Requested: requested,
	}
}

// Preview считает сделку без исполнения. Для продажи FIFO-план
// строится по текущим лотам без блокировок - между предпросмотром
// и исполнением лоты могут измениться.
func (s *TradeService) Preview(ctx context.Context, userID int64, side string, symbol string, amount int64) (*TradePreview, error) {
	if amount <= 0 {
		return nil, NewValidationError("amount must be positive, got %d", amount)
	}
	if side != models.TradeSideBuy && side != models.TradeSideSell {
		return nil, NewValidationError("side must be %q or %q, got %q", models.TradeSideBuy, models.TradeSideSell, side)
	}

	asset, err := lookupTradeable(symbol)
	if err != nil {
		return nil, err
	}

	btcPrice, assetPrice, err := s.fetchPrices(ctx, asset)
	if err != nil {
		return nil, err
	}

	preview := &TradePreview{
		Side:          side,
		Asset:         symbol,
		FromAmount:    amount,
		BTCPriceUSD:   btcPrice,
		AssetPriceUSD: assetPrice,
	}

	if side == models.TradeSideBuy {
		toAmount, err := ledger.Convert(amount, btcPrice, assetPrice, models.SatsPerBTC, asset.UnitScale)
		if err != nil {
			return nil, NewValidationError("cannot convert amount: %v", err)
		}
		if toAmount == 0 {
			return nil, NewValidationError("amount too small: %d sats buys zero units of %s", amount, symbol)
		}
		preview.ToAmount = toAmount
		return preview, nil
	}

	btcOut, err := ledger.Convert(amount, assetPrice, btcPrice, asset.UnitScale, models.SatsPerBTC)
	if err != nil {
		return nil, NewValidationError("cannot convert amount: %v", err)
	}
	if btcOut == 0 {
		return nil, NewValidationError("amount too small: %d units of %s sells for zero sats", amount, symbol)
	}

	now := time.Now().UTC()
	lots, err := s.purchaseRepo.GetOpenByUserAsset(ctx, userID, symbol)
	if err != nil {
		return nil, err
	}

	plan, err := ledger.ConsumeFIFO(lots, amount, now)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientUnlocked) {
			return nil, s.sellRejection(lots, symbol, amount, now)
		}
		return nil, err
	}

	preview.ToAmount = btcOut
	preview.CostBasisSats = plan.CostBasisSats
	preview.RealizedPnLSats = btcOut - plan.CostBasisSats
	return preview, nil
}

// LockInfo возвращает разблокированный и заблокированный остатки
// по активу и момент ближайшей разблокировки
func (s *TradeService) LockInfo(ctx context.Context, userID int64, symbol string) (*LockStatus, error) {
	if _, err := lookupTradeable(symbol); err != nil {
		return nil, err
	}

	lots, err := s.purchaseRepo.GetOpenByUserAsset(ctx, userID, symbol)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &LockStatus{
		Asset:      symbol,
		Unlocked:   ledger.UnlockedRemaining(lots, now),
		Locked:     ledger.LockedRemaining(lots, now),
		NextUnlock: ledger.NextUnlock(lots, now),
	}, nil
}

// History возвращает последние сделки пользователя (новые сверху)
func (s *TradeService) History(ctx context.Context, userID int64, limit int) ([]*TradeRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	trades, err := s.tradeRepo.GetRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	records := make([]*TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, tradeToRecord(t))
	}
	return records, nil
}

// tradeToRecord переводит строку trades в представление "покупка или
// продажа актива за BTC"
func tradeToRecord(t *models.Trade) *TradeRecord {
	r := &TradeRecord{
		ID:        t.ID,
		Side:      t.Side(),
		CreatedAt: t.CreatedAt,
	}

	if t.Side() == models.TradeSideBuy {
		r.Asset = t.ToAsset
		r.AssetAmount = t.ToAmount
		r.BTCAmountSats = t.FromAmount
		r.BTCPriceUSD = t.FromPriceUSD
		r.AssetPriceUSD = t.ToPriceUSD
	} else {
		r.Asset = t.FromAsset
		r.AssetAmount = t.FromAmount
		r.BTCAmountSats = t.ToAmount
		r.BTCPriceUSD = t.ToPriceUSD
		r.AssetPriceUSD = t.FromPriceUSD
	}

	return r
}

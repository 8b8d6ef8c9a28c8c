package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mib/internal/ledger"
	"mib/internal/models"
	"mib/internal/oracle"
	"mib/internal/repository"
)

// PortfolioService - оценка портфеля и восстановление состояния
// из истории сделок.
//
// История сделок - первоисточник: балансы и лоты (включая моменты
// разблокировки) полностью выводимы из нее проигрыванием с нуля.
type PortfolioService struct {
	userRepo     UserRepositoryInterface
	holdingRepo  HoldingRepositoryInterface
	purchaseRepo PurchaseRepositoryInterface
	tradeRepo    TradeRepositoryInterface
	ledgerRepo   LedgerRepositoryInterface
	oracle       PriceOracleInterface
	logger       *zap.Logger
}

// NewPortfolioService создает новый экземпляр PortfolioService
func NewPortfolioService(
	userRepo UserRepositoryInterface,
	holdingRepo HoldingRepositoryInterface,
	purchaseRepo PurchaseRepositoryInterface,
	tradeRepo TradeRepositoryInterface,
	ledgerRepo LedgerRepositoryInterface,
	priceOracle PriceOracleInterface,
	logger *zap.Logger,
) *PortfolioService {
	return &PortfolioService{
		userRepo:     userRepo,
		holdingRepo:  holdingRepo,
		purchaseRepo: purchaseRepo,
		tradeRepo:    tradeRepo,
		ledgerRepo:   ledgerRepo,
		oracle:       priceOracle,
		logger:       logger,
	}
}

// Position - одна строка портфеля
type Position struct {
	Asset    string `json:"asset"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Unlocked int64  `json:"unlocked"`
	Locked   int64  `json:"locked"`

	PriceUSD  decimal.Decimal `json:"price_usd"`
	ValueUSD  decimal.Decimal `json:"value_usd"`
	ValueSats int64           `json:"value_sats"`

	// CostBasisSats, UnrealizedPnLSats - для активов, купленных
	// за BTC; для самого BTC всегда ноль
	CostBasisSats     int64 `json:"cost_basis_sats,omitempty"`
	UnrealizedPnLSats int64 `json:"unrealized_pnl_sats,omitempty"`
}

// Portfolio - портфель пользователя, оцененный по текущим ценам
type Portfolio struct {
	Positions []*Position `json:"positions"`

	TotalValueUSD  decimal.Decimal `json:"total_value_usd"`
	TotalValueSats int64           `json:"total_value_sats"`
	BTCPriceUSD    decimal.Decimal `json:"btc_price_usd"`
	ValuedAt       time.Time       `json:"valued_at"`
}

// Performance - результат против стартового капитала в 1 BTC.
// Мерило - биткоин: успех означает, что сатоши стало больше,
// чем было на старте.
type Performance struct {
	StartingSats int64 `json:"starting_sats"`
	CurrentSats  int64 `json:"current_sats"`
	PnLSats      int64 `json:"pnl_sats"`

	// UnrealizedPnLSats - часть результата, еще не зафиксированная
	// продажей: текущая стоимость открытых лотов минус их оставшаяся
	// себестоимость
	UnrealizedPnLSats int64 `json:"unrealized_pnl_sats"`

	// PnLPercent - результат в процентах от стартового баланса
	PnLPercent decimal.Decimal `json:"pnl_percent"`

	CurrentValueUSD decimal.Decimal `json:"current_value_usd"`
	BTCPriceUSD     decimal.Decimal `json:"btc_price_usd"`
}

// GetPortfolio возвращает все позиции пользователя с оценкой по
// текущим ценам
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID int64) (*Portfolio, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, s.mapUserErr(err)
	}

	holdings, err := s.holdingRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	openLots, err := s.purchaseRepo.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	lotsByAsset := make(map[string][]*models.Purchase)
	for _, lot := range openLots {
		lotsByAsset[lot.Asset] = append(lotsByAsset[lot.Asset], lot)
	}

	btcAsset, _ := models.LookupAsset(models.SymbolBTC)
	btcPrice, err := s.oracle.GetPriceUSD(ctx, btcAsset)
	if err != nil {
		return nil, s.mapPriceErr(err)
	}

	now := time.Now().UTC()
	portfolio := &Portfolio{
		Positions:   make([]*Position, 0, len(holdings)),
		BTCPriceUSD: btcPrice,
		ValuedAt:    now,
	}

	for _, h := range holdings {
		if h.Amount == 0 && h.Asset != models.SymbolBTC {
			continue
		}

		asset, ok := models.LookupAsset(h.Asset)
		if !ok {
			// Актив убран из каталога, но остаток на балансе есть.
			// Показываем без оценки, чтобы не скрывать средства.
			s.logger.Warn("holding in unknown asset",
				zap.Int64("user_id", userID),
				zap.String("asset", h.Asset))
			portfolio.Positions = append(portfolio.Positions, &Position{
				Asset:  h.Asset,
				Amount: h.Amount,
			})
			continue
		}

		pos, err := s.valuePosition(ctx, h, asset, btcPrice, lotsByAsset[h.Asset], now)
		if err != nil {
			return nil, err
		}

		portfolio.Positions = append(portfolio.Positions, pos)
		portfolio.TotalValueUSD = portfolio.TotalValueUSD.Add(pos.ValueUSD)
		portfolio.TotalValueSats += pos.ValueSats
	}

	return portfolio, nil
}

// valuePosition оценивает одну позицию по текущей цене
func (s *PortfolioService) valuePosition(
	ctx context.Context,
	h *models.Holding,
	asset models.Asset,
	btcPrice decimal.Decimal,
	lots []*models.Purchase,
	now time.Time,
) (*Position, error) {
	pos := &Position{
		Asset:  asset.Symbol,
		Name:   asset.Name,
		Amount: h.Amount,
	}

	var price decimal.Decimal
	if asset.Symbol == models.SymbolBTC {
		price = btcPrice
		pos.Unlocked = h.Amount
		pos.ValueSats = h.Amount
	} else {
		var err error
		price, err = s.oracle.GetPriceUSD(ctx, asset)
		if err != nil {
			return nil, s.mapPriceErr(err)
		}

		pos.Unlocked = ledger.UnlockedRemaining(lots, now)
		pos.Locked = ledger.LockedRemaining(lots, now)

		valueSats, err := ledger.Convert(h.Amount, price, btcPrice, asset.UnitScale, models.SatsPerBTC)
		if err != nil {
			return nil, err
		}
		pos.ValueSats = valueSats
		pos.CostBasisSats = ledger.RemainingCostBasis(lots)
		pos.UnrealizedPnLSats = valueSats - pos.CostBasisSats
	}

	pos.PriceUSD = price
	// value = amount / unitScale * price
	pos.ValueUSD = decimal.NewFromInt(h.Amount).Mul(price).Div(decimal.NewFromInt(asset.UnitScale))

	return pos, nil
}

// GetPerformance сравнивает текущую стоимость портфеля в сатоши со
// стартовым балансом
func (s *PortfolioService) GetPerformance(ctx context.Context, userID int64) (*Performance, error) {
	portfolio, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	pnl := portfolio.TotalValueSats - models.StartingBalanceSats
	pct := decimal.NewFromInt(pnl).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(models.StartingBalanceSats)).
		Round(4)

	// Нереализованная часть - сумма по открытым позициям; для BTC и
	// закрытых позиций она нулевая
	var unrealized int64
	for _, pos := range portfolio.Positions {
		unrealized += pos.UnrealizedPnLSats
	}

	return &Performance{
		StartingSats:      models.StartingBalanceSats,
		CurrentSats:       portfolio.TotalValueSats,
		PnLSats:           pnl,
		UnrealizedPnLSats: unrealized,
		PnLPercent:        pct,
		CurrentValueUSD:   portfolio.TotalValueUSD,
		BTCPriceUSD:       portfolio.BTCPriceUSD,
	}, nil
}

// Rebuild восстанавливает балансы и лоты пользователя проигрыванием
// всей истории сделок с чистого листа. История при этом не меняется.
// Применяется после ручных правок в БД или при подозрении на
// рассинхронизацию.
func (s *PortfolioService) Rebuild(ctx context.Context, userID int64) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return s.mapUserErr(err)
	}

	err := s.ledgerRepo.WithTx(ctx, func(tx repository.Tx) error {
		trades, err := tx.TradesChronological(ctx, userID)
		if err != nil {
			return err
		}

		rebuilt, err := ledger.Replay(models.StartingBalanceSats, trades)
		if err != nil {
			return fmt.Errorf("trade history does not replay cleanly: %w", err)
		}

		if err := tx.DeleteUserLedger(ctx, userID); err != nil {
			return err
		}

		for asset, amount := range rebuilt.Holdings {
			if _, err := tx.AdjustHolding(ctx, userID, asset, amount); err != nil {
				return err
			}
		}

		for _, lots := range rebuilt.Lots {
			for _, lot := range lots {
				lot.ID = 0
				lot.UserID = userID
				if err := tx.InsertPurchase(ctx, lot); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("ledger rebuilt from trade history", zap.Int64("user_id", userID))
	return nil
}

// VerifyReport - результат сверки текущего состояния с проигранной
// историей
type VerifyReport struct {
	Consistent bool     `json:"consistent"`
	Issues     []string `json:"issues,omitempty"`
}

// Verify проигрывает историю сделок и сверяет результат с текущими
// балансами и лотами, ничего не меняя
func (s *PortfolioService) Verify(ctx context.Context, userID int64) (*VerifyReport, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, s.mapUserErr(err)
	}

	trades, err := s.tradeRepo.GetChronological(ctx, userID)
	if err != nil {
		return nil, err
	}

	rebuilt, err := ledger.Replay(models.StartingBalanceSats, trades)
	if err != nil {
		return &VerifyReport{
			Consistent: false,
			Issues:     []string{fmt.Sprintf("history does not replay: %v", err)},
		}, nil
	}

	report := &VerifyReport{Consistent: true}
	addIssue := func(format string, args ...interface{}) {
		report.Consistent = false
		report.Issues = append(report.Issues, fmt.Sprintf(format, args...))
	}

	holdings, err := s.holdingRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	actual := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		actual[h.Asset] = h.Amount
	}

	for asset, expected := range rebuilt.Holdings {
		if actual[asset] != expected {
			addIssue("holding %s: have %d, history says %d", asset, actual[asset], expected)
		}
	}
	for asset, amount := range actual {
		if _, ok := rebuilt.Holdings[asset]; !ok && amount != 0 {
			addIssue("holding %s: have %d, history says none", asset, amount)
		}
	}

	openLots, err := s.purchaseRepo.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	actualRemaining := make(map[string]int64)
	for _, lot := range openLots {
		actualRemaining[lot.Asset] += lot.Remaining()
	}
	for asset, lots := range rebuilt.Lots {
		expected := ledger.TotalRemaining(lots)
		if actualRemaining[asset] != expected {
			addIssue("open lots %s: have %d remaining, history says %d", asset, actualRemaining[asset], expected)
		}
	}
	for asset, remaining := range actualRemaining {
		if _, ok := rebuilt.Lots[asset]; !ok && remaining != 0 {
			addIssue("open lots %s: have %d remaining, history says none", asset, remaining)
		}
	}

	return report, nil
}

func (s *PortfolioService) mapUserErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *PortfolioService) mapPriceErr(err error) error {
	if errors.Is(err, oracle.ErrPriceUnavailable) {
		return ErrPriceUnavailable
	}
	return err
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade - неизменяемая историческая запись одной конвертации.
// Создается на каждую покупку и продажу, никогда не обновляется
// и не удаляется. Последовательность Trade, проигранная в
// хронологическом порядке, полностью восстанавливает балансы
// и лоты пользователя.
type Trade struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`

	FromAsset  string `json:"from_asset" db:"from_asset"`
	ToAsset    string `json:"to_asset" db:"to_asset"`
	FromAmount int64  `json:"from_amount" db:"from_amount"`
	ToAmount   int64  `json:"to_amount" db:"to_amount"`

	// Цены USD на момент исполнения (за целую единицу)
	FromPriceUSD decimal.Decimal `json:"from_price_usd" db:"from_price_usd"`
	ToPriceUSD   decimal.Decimal `json:"to_price_usd" db:"to_price_usd"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Side возвращает сторону сделки с точки зрения BTC.
func (t *Trade) Side() string {
	if t.FromAsset == SymbolBTC {
		return TradeSideBuy
	}
	return TradeSideSell
}

// Стороны сделки
const (
	TradeSideBuy  = "buy"  // BTC -> актив
	TradeSideSell = "sell" // актив -> BTC
)

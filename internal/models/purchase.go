package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase - лот: запись об одной покупке актива за BTC.
//
// Лоты append-only: после создания меняется только поле Consumed,
// которое отражает, какая часть лота уже продана (FIFO).
// Жизненный цикл лота: открыт (заблокирован) -> открыт (разблокирован,
// когда истекает LockedUntil) -> частично продан -> продан полностью
// (Consumed == Amount). Обратных переходов нет.
type Purchase struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Asset  string `json:"asset" db:"asset"`

	// Amount - сколько минимальных единиц актива куплено
	Amount int64 `json:"amount" db:"amount"`

	// Consumed - сколько из Amount уже продано
	Consumed int64 `json:"consumed" db:"consumed"`

	// BTCSpent - потрачено сатоши на весь лот
	BTCSpent int64 `json:"btc_spent" db:"btc_spent"`

	// Цены USD на момент исполнения (за целую единицу)
	BTCPriceUSD   decimal.Decimal `json:"btc_price_usd" db:"btc_price_usd"`
	AssetPriceUSD decimal.Decimal `json:"asset_price_usd" db:"asset_price_usd"`

	// LockedUntil - до этого момента лот нельзя продавать
	// (время покупки + 24 часа)
	LockedUntil time.Time `json:"locked_until" db:"locked_until"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// LockPeriod - окно после покупки, в течение которого лот
// недоступен для продажи
const LockPeriod = 24 * time.Hour

// Remaining возвращает непроданный остаток лота.
func (p *Purchase) Remaining() int64 {
	return p.Amount - p.Consumed
}

// IsLocked сообщает, заблокирован ли лот на момент now.
func (p *Purchase) IsLocked(now time.Time) bool {
	return now.Before(p.LockedUntil)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot - последняя известная цена актива в USD.
// Используется как fallback, когда внешний API цен недоступен.
// Данные носят рекомендательный характер: конкурирующие записи
// разрешаются по принципу last-write-wins.
type PriceSnapshot struct {
	Symbol    string          `json:"symbol" db:"symbol"`
	PriceUSD  decimal.Decimal `json:"price_usd" db:"price_usd"`
	FetchedAt time.Time       `json:"fetched_at" db:"fetched_at"`
}

// Suggestion - предложение пользователя (например, добавить
// новый актив). Отправка ограничена token-bucket лимитером.
type Suggestion struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

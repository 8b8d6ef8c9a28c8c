package models

import "time"

// Holding - текущий баланс одного актива пользователя.
// Сумма всегда в целых минимальных единицах и не бывает отрицательной.
// Одна строка на пару (пользователь, актив); изменяется только
// торговым движком внутри транзакции сделки.
type Holding struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Asset     string    `json:"asset" db:"asset"`
	Amount    int64     `json:"amount" db:"amount"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Package ledger реализует учетную логику симулятора: целочисленную
// конвертацию между активами, FIFO-списание лотов при продаже и
// восстановление балансов из истории сделок.
//
// Вся арифметика - строго целочисленная в минимальных единицах активов.
// Дробная минимальная единица не может возникнуть ни в одной операции:
// деление всегда выполняется с округлением вниз через точный QuoRem,
// без промежуточных float.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Ошибки конвертации
var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrInvalidPrice      = errors.New("price must be positive")
	ErrAmountOverflow    = errors.New("converted amount overflows int64")
)

// Convert пересчитывает amount минимальных единиц одного актива в
// минимальные единицы другого по текущим ценам USD.
//
// Цены задаются за целую единицу актива (за монету, акцию, унцию),
// fromScale/toScale - число минимальных единиц в целой единице.
//
// Формула: floor(amount * fromPriceUSD * toScale / (toPriceUSD * fromScale)).
// Числитель и знаменатель вычисляются точно (умножения decimal без
// округления), деление - QuoRem с нулевой точностью, то есть точный
// целочисленный floor для положительных значений.
func Convert(amount int64, fromPriceUSD, toPriceUSD decimal.Decimal, fromScale, toScale int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	if fromPriceUSD.Sign() <= 0 || toPriceUSD.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}

	num := decimal.NewFromInt(amount).
		Mul(fromPriceUSD).
		Mul(decimal.NewFromInt(toScale))
	den := toPriceUSD.Mul(decimal.NewFromInt(fromScale))

	q, _ := num.QuoRem(den, 0)

	bi := q.BigInt()
	if !bi.IsInt64() {
		return 0, ErrAmountOverflow
	}
	return bi.Int64(), nil
}

// proRataBasis возвращает часть btcSpent, приходящуюся на consumed
// из amount единиц лота: floor(consumed * btcSpent / amount).
//
// Величина детерминированно зависит только от consumed, поэтому
// стоимость очередного списания считается как разность накопленных
// значений - при полном исчерпании лота суммарная себестоимость
// сходится ровно к btcSpent, без потерянных сатоши.
func proRataBasis(consumed, btcSpent, amount int64) int64 {
	if consumed <= 0 || amount <= 0 {
		return 0
	}
	if consumed >= amount {
		return btcSpent
	}
	num := decimal.NewFromInt(consumed).Mul(decimal.NewFromInt(btcSpent))
	q, _ := num.QuoRem(decimal.NewFromInt(amount), 0)
	return q.IntPart()
}

package ledger

import (
	"errors"
	"time"

	"mib/internal/models"
)

// Ошибки списания лотов
var (
	// ErrInsufficientUnlocked - разблокированного остатка по лотам
	// не хватает на запрошенный объем. Заблокированные лоты не
	// учитываются, даже если с ними объема было бы достаточно.
	ErrInsufficientUnlocked = errors.New("insufficient unlocked amount")
)

// Consumption - списание с одного лота в рамках продажи.
type Consumption struct {
	LotID int64

	// Take - сколько минимальных единиц списывается с лота
	Take int64

	// NewConsumed - значение Purchase.Consumed после списания
	NewConsumed int64

	// CostBasisSats - себестоимость списанной части в сатоши
	CostBasisSats int64
}

// Plan - полный план продажи: какие лоты и на сколько уменьшить.
// План вычисляется в памяти по лотам, прочитанным один раз внутри
// транзакции, и применяется к хранилищу атомарно.
type Plan struct {
	Consumptions []Consumption

	// CostBasisSats - суммарная себестоимость продаваемого объема
	CostBasisSats int64
}

// ConsumeFIFO строит план списания amount минимальных единиц с
// открытых лотов. Лоты должны быть отсортированы по времени покупки
// по возрастанию; списание идет со старейшего разблокированного лота,
// частично - если остатка лота больше, чем нужно.
//
// Заблокированные лоты (LockedUntil > now) пропускаются целиком.
// Если суммарного разблокированного остатка не хватает, возвращается
// ErrInsufficientUnlocked и никакой план не строится.
func ConsumeFIFO(lots []*models.Purchase, amount int64, now time.Time) (*Plan, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	if UnlockedRemaining(lots, now) < amount {
		return nil, ErrInsufficientUnlocked
	}

	plan := &Plan{}
	left := amount

	for _, lot := range lots {
		if left == 0 {
			break
		}
		if lot.IsLocked(now) || lot.Remaining() == 0 {
			continue
		}

		take := lot.Remaining()
		if take > left {
			take = left
		}

		newConsumed := lot.Consumed + take
		basis := proRataBasis(newConsumed, lot.BTCSpent, lot.Amount) -
			proRataBasis(lot.Consumed, lot.BTCSpent, lot.Amount)

		plan.Consumptions = append(plan.Consumptions, Consumption{
			LotID:         lot.ID,
			Take:          take,
			NewConsumed:   newConsumed,
			CostBasisSats: basis,
		})
		plan.CostBasisSats += basis
		left -= take
	}

	return plan, nil
}

// UnlockedRemaining возвращает суммарный непроданный остаток по
// разблокированным лотам.
func UnlockedRemaining(lots []*models.Purchase, now time.Time) int64 {
	var total int64
	for _, lot := range lots {
		if !lot.IsLocked(now) {
			total += lot.Remaining()
		}
	}
	return total
}

// LockedRemaining возвращает суммарный непроданный остаток по
// заблокированным лотам.
func LockedRemaining(lots []*models.Purchase, now time.Time) int64 {
	var total int64
	for _, lot := range lots {
		if lot.IsLocked(now) {
			total += lot.Remaining()
		}
	}
	return total
}

// TotalRemaining возвращает непроданный остаток по всем лотам.
func TotalRemaining(lots []*models.Purchase) int64 {
	var total int64
	for _, lot := range lots {
		total += lot.Remaining()
	}
	return total
}

// NextUnlock возвращает ближайший момент разблокировки среди
// заблокированных неисчерпанных лотов, либо nil, если таких нет.
func NextUnlock(lots []*models.Purchase, now time.Time) *time.Time {
	var next *time.Time
	for _, lot := range lots {
		if !lot.IsLocked(now) || lot.Remaining() == 0 {
			continue
		}
		if next == nil || lot.LockedUntil.Before(*next) {
			t := lot.LockedUntil
			next = &t
		}
	}
	return next
}

// RemainingCostBasis возвращает себестоимость (в сатоши) непроданных
// остатков всех лотов. Для частично проданных лотов остаток
// себестоимости считается как btcSpent минус уже списанная часть.
func RemainingCostBasis(lots []*models.Purchase) int64 {
	var total int64
	for _, lot := range lots {
		total += lot.BTCSpent - proRataBasis(lot.Consumed, lot.BTCSpent, lot.Amount)
	}
	return total
}

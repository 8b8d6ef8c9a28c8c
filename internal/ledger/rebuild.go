package ledger

import (
	"errors"
	"fmt"

	"mib/internal/models"
)

// ErrHistoryInconsistent - история сделок не может быть проиграна:
// какой-то баланс уходит в минус или продажа превышает доступные лоты.
var ErrHistoryInconsistent = errors.New("trade history is inconsistent")

// Rebuilt - результат восстановления состояния из истории сделок.
type Rebuilt struct {
	// Holdings - балансы по активам в минимальных единицах
	Holdings map[string]int64

	// Lots - открытые лоты по активам, в хронологическом порядке
	Lots map[string][]*models.Purchase
}

// Replay восстанавливает балансы и лоты пользователя, проигрывая
// сделки в хронологическом порядке от стартового баланса.
//
// История сделок - первоисточник: состояние лотов полностью выводимо
// из нее (LockedUntil = время сделки + LockPeriod, списания - тем же
// FIFO-алгоритмом, что и при исполнении). Строки Purchase в хранилище
// остаются рабочей копией для быстрого доступа, но при расхождении
// пересоздаются отсюда.
func Replay(startingSats int64, trades []*models.Trade) (*Rebuilt, error) {
	r := &Rebuilt{
		Holdings: map[string]int64{models.SymbolBTC: startingSats},
		Lots:     make(map[string][]*models.Purchase),
	}

	// Синтетические ID лотов нужны, чтобы применить план FIFO-списания
	var nextLotID int64 = 1
	byID := make(map[int64]*models.Purchase)

	for i, t := range trades {
		if t.FromAmount <= 0 || t.ToAmount < 0 {
			return nil, fmt.Errorf("%w: trade %d has invalid amounts", ErrHistoryInconsistent, t.ID)
		}
		if i > 0 && t.CreatedAt.Before(trades[i-1].CreatedAt) {
			return nil, fmt.Errorf("%w: trades out of chronological order at %d", ErrHistoryInconsistent, t.ID)
		}

		r.Holdings[t.FromAsset] -= t.FromAmount
		r.Holdings[t.ToAsset] += t.ToAmount
		if r.Holdings[t.FromAsset] < 0 {
			return nil, fmt.Errorf("%w: trade %d overdraws %s", ErrHistoryInconsistent, t.ID, t.FromAsset)
		}

		switch {
		case t.FromAsset == models.SymbolBTC:
			// Покупка: новый лот, заблокированный на LockPeriod
			lot := &models.Purchase{
				ID:            nextLotID,
				UserID:        t.UserID,
				Asset:         t.ToAsset,
				Amount:        t.ToAmount,
				BTCSpent:      t.FromAmount,
				BTCPriceUSD:   t.FromPriceUSD,
				AssetPriceUSD: t.ToPriceUSD,
				LockedUntil:   t.CreatedAt.Add(models.LockPeriod),
				CreatedAt:     t.CreatedAt,
			}
			nextLotID++
			byID[lot.ID] = lot
			r.Lots[t.ToAsset] = append(r.Lots[t.ToAsset], lot)

		case t.ToAsset == models.SymbolBTC:
			// Продажа: FIFO-списание на момент сделки
			plan, err := ConsumeFIFO(r.Lots[t.FromAsset], t.FromAmount, t.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("%w: trade %d: %v", ErrHistoryInconsistent, t.ID, err)
			}
			for _, c := range plan.Consumptions {
				byID[c.LotID].Consumed = c.NewConsumed
			}

		default:
			return nil, fmt.Errorf("%w: trade %d does not involve BTC", ErrHistoryInconsistent, t.ID)
		}
	}

	return r, nil
}

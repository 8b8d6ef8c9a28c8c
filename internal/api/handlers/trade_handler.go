package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mib/internal/api/middleware"
	"mib/internal/models"
	"mib/internal/service"
)

// TradeHandler обрабатывает HTTP запросы торгового движка.
//
// Endpoints:
// - POST /api/v1/trades/execute - исполнить сделку
// - POST /api/v1/trades/preview - рассчитать сделку без исполнения
// - GET  /api/v1/trades/history - история сделок (новые сверху)
// - GET  /api/v1/trades/lock-info/{symbol} - состояние блокировок актива
//
// Все суммы целочисленные: сатоши для BTC, минимальные единицы для
// остальных активов.
type TradeHandler struct {
	tradeService service.TradeServiceInterface
}

// NewTradeHandler создает новый TradeHandler с внедрением зависимостей
func NewTradeHandler(tradeService service.TradeServiceInterface) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
	}
}

// TradeRequest - тело запроса исполнения или расчета сделки.
// Ровно одна из сторон обязана быть BTC: BTC -> актив это покупка,
// актив -> BTC - продажа.
type TradeRequest struct {
	FromAsset string `json:"from_asset"`
	ToAsset   string `json:"to_asset"`

	// Amount - сумма к списанию в минимальных единицах FromAsset
	// (сатоши при покупке, единицы актива при продаже)
	Amount int64 `json:"amount"`
}

// resolve определяет сторону сделки и торгуемый актив по паре активов
func (req *TradeRequest) resolve() (side, asset string, ok bool) {
	switch {
	case req.FromAsset == models.SymbolBTC && req.ToAsset != models.SymbolBTC:
		return models.TradeSideBuy, req.ToAsset, true
	case req.ToAsset == models.SymbolBTC && req.FromAsset != models.SymbolBTC:
		return models.TradeSideSell, req.FromAsset, true
	default:
		return "", "", false
	}
}

// Execute исполняет сделку по текущим ценам.
//
// POST /api/v1/trades/execute
//
// Request:
//
//	{"from_asset": "BTC", "to_asset": "AAPL", "amount": 30000000}
//
// Response 200 OK: TradeResult с записью сделки и новыми балансами.
// Response 400: validation_error | unsupported_asset | insufficient_balance
// Response 423: asset_locked (с моментом ближайшей разблокировки)
// Response 503: price_unavailable
func (h *TradeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	side, asset, ok := req.resolve()
	if !ok {
		writeBadRequest(w, "exactly one side of the trade must be BTC")
		return
	}

	var result *service.TradeResult
	var err error
	if side == models.TradeSideBuy {
		result, err = h.tradeService.ExecuteBuy(r.Context(), user.ID, asset, req.Amount)
	} else {
		result, err = h.tradeService.ExecuteSell(r.Context(), user.ID, asset, req.Amount)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Preview рассчитывает сделку без исполнения.
//
// POST /api/v1/trades/preview
//
// Тело то же, что у Execute. Расчет идет тем же кодом, что и
// исполнение: при неизменных ценах и лотах результат совпадет.
func (h *TradeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	side, asset, ok := req.resolve()
	if !ok {
		writeBadRequest(w, "exactly one side of the trade must be BTC")
		return
	}

	preview, err := h.tradeService.Preview(r.Context(), user.ID, side, asset, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// History возвращает последние сделки пользователя.
//
// GET /api/v1/trades/history?limit=50
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	records, err := h.tradeService.History(r.Context(), user.ID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*service.TradeRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// LockInfo возвращает разблокированный и заблокированный остатки по
// активу.
//
// GET /api/v1/trades/lock-info/{symbol}
func (h *TradeHandler) LockInfo(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	symbol := mux.Vars(r)["symbol"]

	status, err := h.tradeService.LockInfo(r.Context(), user.ID, symbol)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

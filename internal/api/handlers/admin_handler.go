package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mib/internal/service"
)

// AdminHandler обрабатывает административные операции над леджером.
// Все маршруты защищены middleware.RequireAdmin.
//
// Endpoints:
// - GET  /api/v1/admin/users/{id}/verify - сверить состояние с историей
// - POST /api/v1/admin/users/{id}/rebuild - восстановить состояние из
//   истории сделок
type AdminHandler struct {
	portfolioService service.PortfolioServiceInterface
}

// NewAdminHandler создает новый AdminHandler с внедрением зависимостей
func NewAdminHandler(portfolioService service.PortfolioServiceInterface) *AdminHandler {
	return &AdminHandler{
		portfolioService: portfolioService,
	}
}

// Verify проигрывает историю сделок пользователя и сверяет результат
// с текущими балансами и лотами, ничего не меняя.
//
// GET /api/v1/admin/users/{id}/verify
//
// Response 200 OK:
//
//	{"consistent": false, "issues": ["holding BTC: have 5, history says 70000000"]}
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	report, err := h.portfolioService.Verify(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Rebuild восстанавливает балансы и лоты пользователя проигрыванием
// истории сделок с чистого листа. История не меняется.
//
// POST /api/v1/admin/users/{id}/rebuild
func (h *AdminHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.portfolioService.Rebuild(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "ledger rebuilt from trade history"})
}

func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || userID <= 0 {
		writeBadRequest(w, "user id must be a positive integer")
		return 0, false
	}
	return userID, true
}

package handlers

import (
	"net/http"

	"mib/internal/api/middleware"
	"mib/internal/service"
)

// PortfolioHandler обрабатывает HTTP запросы оценки портфеля.
//
// Endpoints:
// - GET /api/v1/portfolio - позиции с оценкой по текущим ценам
// - GET /api/v1/portfolio/performance - результат против стартового
//   баланса в 1 BTC
type PortfolioHandler struct {
	portfolioService service.PortfolioServiceInterface
}

// NewPortfolioHandler создает новый PortfolioHandler с внедрением
// зависимостей
func NewPortfolioHandler(portfolioService service.PortfolioServiceInterface) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// GetPortfolio возвращает все позиции пользователя, оцененные в USD
// и в сатоши.
//
// GET /api/v1/portfolio
//
// Response 503: price_unavailable - нет ни живой цены, ни снапшота
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	portfolio, err := h.portfolioService.GetPortfolio(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, portfolio)
}

// GetPerformance возвращает результат портфеля в сатоши и процентах
// от стартового баланса.
//
// GET /api/v1/portfolio/performance
func (h *PortfolioHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	perf, err := h.portfolioService.GetPerformance(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, perf)
}

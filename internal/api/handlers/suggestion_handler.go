package handlers

import (
	"net/http"
	"strconv"

	"mib/internal/api/middleware"
	"mib/internal/models"
	"mib/internal/service"
)

// SuggestionHandler принимает предложения пользователей (новые
// активы, пожелания по функциональности).
//
// Endpoints:
// - POST /api/v1/suggestions - отправить предложение
// - GET  /api/v1/suggestions - свои последние предложения
type SuggestionHandler struct {
	suggestionService service.SuggestionServiceInterface
}

// NewSuggestionHandler создает новый SuggestionHandler с внедрением
// зависимостей
func NewSuggestionHandler(suggestionService service.SuggestionServiceInterface) *SuggestionHandler {
	return &SuggestionHandler{
		suggestionService: suggestionService,
	}
}

// Submit сохраняет предложение пользователя.
//
// POST /api/v1/suggestions
//
// Request:
//
//	{"body": "please add ETH"}
//
// Response 429: rate_limited - превышена частота отправки
func (h *SuggestionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	suggestion, err := h.suggestionService.Submit(r.Context(), user.ID, req.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, suggestion)
}

// Recent возвращает последние предложения пользователя.
//
// GET /api/v1/suggestions?limit=20
func (h *SuggestionHandler) Recent(w http.ResponseWriter, r *http.Request) {
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

	suggestions, err := h.suggestionService.Recent(r.Context(), user.ID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []*models.Suggestion{}
	}

	writeJSON(w, http.StatusOK, suggestions)
}

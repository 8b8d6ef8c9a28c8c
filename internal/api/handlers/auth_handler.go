package handlers

import (
	"net/http"

	"mib/internal/api/middleware"
	"mib/internal/service"
)

// AuthHandler обрабатывает вход по одноразовой ссылке.
//
// Endpoints:
// - POST /api/v1/auth/request-link - запросить ссылку входа
// - POST /api/v1/auth/verify - обменять токен ссылки на сессию
// - GET  /api/v1/auth/me - текущий пользователь (требует сессию)
type AuthHandler struct {
	authService service.AuthServiceInterface
}

// NewAuthHandler создает новый AuthHandler с внедрением зависимостей
func NewAuthHandler(authService service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RequestLink создает одноразовую ссылку входа для email. Ссылка
// публикуется в лог сервера. Ответ не раскрывает, существует ли
// аккаунт с таким адресом.
//
// POST /api/v1/auth/request-link
//
// Request:
//
//	{"email": "alice@example.com"}
func (h *AuthHandler) RequestLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := h.authService.RequestLink(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "login link issued, check the server log"})
}

// Verify обменивает токен из ссылки на сессионный токен. Токен ссылки
// сгорает после первого использования.
//
// POST /api/v1/auth/verify
//
// Request:
//
//	{"token": "12.a1b2c3..."}
//
// Response 200 OK: пользователь, сессионный токен и срок его действия.
// Response 401: invalid_token - токен неизвестен, просрочен или
// уже использован.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	result, err := h.authService.VerifyLink(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Me возвращает аутентифицированного пользователя.
//
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.UserFrom(r.Context()))
}

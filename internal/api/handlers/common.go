package handlers

import (
	"errors"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"mib/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse стандартный формат ответа об ошибке для всех API
// endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`

	// NextUnlock заполняется для asset_locked: момент, когда
	// ближайший лот разблокируется
	NextUnlock *time.Time `json:"next_unlock,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа без данных
type SuccessResponse struct {
	Message string `json:"message,omitempty"`
}

// writeJSON сериализует v со статусом status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError переводит ошибки сервисного слоя в HTTP статусы.
// Детали бизнес-ошибок уходят клиенту, внутренние ошибки прячутся
// за общим 500.
func writeServiceError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var status int
	switch {
	case errors.Is(err, service.ErrValidation):
		status, resp.Code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrUnsupportedAsset):
		status, resp.Code = http.StatusBadRequest, "unsupported_asset"
	case errors.Is(err, service.ErrInsufficientBalance):
		status, resp.Code = http.StatusBadRequest, "insufficient_balance"
	case errors.Is(err, service.ErrAssetLocked):
		status, resp.Code = http.StatusLocked, "asset_locked"
		var lockErr *service.AssetLockedError
		if errors.As(err, &lockErr) {
			resp.NextUnlock = lockErr.NextUnlock
		}
	case errors.Is(err, service.ErrPriceUnavailable):
		status, resp.Code = http.StatusServiceUnavailable, "price_unavailable"
	case errors.Is(err, service.ErrNotFound):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidToken):
		status, resp.Code = http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, service.ErrRateLimited):
		status, resp.Code = http.StatusTooManyRequests, "rate_limited"
	default:
		status, resp.Code = http.StatusInternalServerError, "internal"
		resp.Error = "internal server error"
	}

	writeJSON(w, status, resp)
}

// writeBadRequest для ошибок разбора запроса до сервисного слоя
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: message,
		Code:  "validation_error",
	})
}

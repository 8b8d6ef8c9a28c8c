package service

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки бизнес-логики. Обработчики HTTP сопоставляют их со
// статус-кодами; детали несут типизированные ошибки ниже.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUnsupportedAsset    = errors.New("unsupported asset")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAssetLocked         = errors.New("asset is locked")
	ErrPriceUnavailable    = errors.New("price unavailable")
	ErrNotFound            = errors.New("not found")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrRateLimited         = errors.New("rate limit exceeded")
)

// ValidationError - некорректный ввод с человекочитаемой причиной
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError создает ValidationError с форматированием
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedAssetError - символ отсутствует в каталоге активов
type UnsupportedAssetError struct {
	Symbol string
}

func (e *UnsupportedAssetError) Error() string {
	return fmt.Sprintf("unsupported asset: %s", e.Symbol)
}

func (e *UnsupportedAssetError) Is(target error) bool {
	return target == ErrUnsupportedAsset
}

// InsufficientBalanceError - баланса не хватает на запрошенный объем
type InsufficientBalanceError struct {
	Asset     string
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: have %d, need %d",
		e.Asset, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// AssetLockedError - объема хватило бы, но часть лотов еще под
// 24-часовой блокировкой. NextUnlock подсказывает пользователю,
// когда продажа станет возможной.
type AssetLockedError struct {
	Asset      string
	Unlocked   int64
	Locked     int64
	Requested  int64
	NextUnlock *time.Time
}

func (e *AssetLockedError) Error() string {
	return fmt.Sprintf("%s is locked: %d unlocked, %d locked, %d requested",
		e.Asset, e.Unlocked, e.Locked, e.Requested)
}

func (e *AssetLockedError) Is(target error) bool {
	return target == ErrAssetLocked
}

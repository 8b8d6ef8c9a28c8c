// Package retry - повторные попытки с экспоненциальным backoff.
// Используется оракулом цен при обращении к внешнему API.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config - параметры повторных попыток.
//
// Задержка между попытками растет экспоненциально:
// delay = min(InitialDelay * Multiplier^attempt, MaxDelay) + jitter.
// Jitter размывает моменты повторов, чтобы клиенты не били по API
// одновременно после общего сбоя.
type Config struct {
	// MaxRetries - количество попыток, включая первую
	MaxRetries int

	// InitialDelay - задержка перед второй попыткой
	InitialDelay time.Duration

	// MaxDelay - верхняя граница задержки
	MaxDelay time.Duration

	// Multiplier - множитель экспоненциального роста
	Multiplier float64

	// JitterFactor - доля случайной вариации задержки (0.0 - 1.0)
	JitterFactor float64

	// RetryIf решает, имеет ли смысл повторять после данной ошибки.
	// nil = повторять любые ошибки.
	RetryIf func(error) bool

	// OnRetry вызывается перед каждым повтором - для логирования
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig - 4 попытки с задержками 100ms, 200ms, 400ms
func DefaultConfig() Config {
	return Config{
		MaxRetries:   4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// ConservativeConfig - 3 попытки с задержками 500ms, 1s.
// Для фоновых запросов, где быстрый повтор не нужен.
func ConservativeConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	}
}

// validate подставляет значения по умолчанию вместо некорректных
func (c *Config) validate() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
}

// calculateDelay вычисляет задержку перед попыткой attempt+2
func (c *Config) calculateDelay(attempt int) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.JitterFactor > 0 {
		delay += delay * c.JitterFactor * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Do выполняет operation с повторными попытками.
// Возвращает nil при первом успехе либо последнюю ошибку,
// когда попытки исчерпаны или контекст отменен.
func Do(ctx context.Context, operation func() error, cfg Config) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg)
	return err
}

// DoWithResult - вариант Do для операций, возвращающих значение
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, error) {
	cfg.validate()

	var lastErr error
	var zero T

	for attempt := 0; cfg.MaxRetries <= 0 || attempt < cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		default:
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return zero, err
		}

		if cfg.MaxRetries > 0 && attempt >= cfg.MaxRetries-1 {
			break
		}

		delay := cfg.calculateDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// RetryableError - ошибка, сама сообщающая, можно ли ее повторять
type RetryableError interface {
	error
	Retryable() bool
}

// IsRetryable возвращает true, если ошибку имеет смысл повторить.
// Ошибки, не реализующие RetryableError, повторяются по умолчанию;
// отмена контекста не повторяется никогда.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	return true
}

// PermanentError помечает ошибку как неповторяемую
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string   { return e.Err.Error() }
func (e *PermanentError) Unwrap() error   { return e.Err }
func (e *PermanentError) Retryable() bool { return false }

// Permanent оборачивает ошибку, после которой повторять бессмысленно
// (например, неизвестный символ в ответе API)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

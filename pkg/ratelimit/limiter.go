// Package ratelimit - Token Bucket ограничитель частоты.
// Применяется к исходящим запросам оракула цен и к пользовательским
// действиям вроде отправки предложений.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - ведро токенов: пополняется со скоростью rate
// токенов в секунду до емкости burst, каждый запрос забирает один
// токен. Burst позволяет короткие всплески, постоянный поток
// сглаживается до rate.
type RateLimiter struct {
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter создает ограничитель на rate запросов в секунду
// с емкостью burst. Ведро стартует полным.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst < rate {
		burst = rate
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// refill пополняет токены за прошедшее время. Вызывается под mu.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}

	rl.lastRefill = now
}

// Wait блокирует до получения токена или отмены контекста
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		waitTime := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Allow забирает токен без блокировки.
// false = лимит исчерпан, запрос следует отклонить.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	return false
}

// Tokens возвращает текущее количество доступных токенов
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// KeyedLimiter - независимое ведро токенов на каждый ключ
// (например, на каждого пользователя). Ведра создаются лениво
// при первом обращении.
type KeyedLimiter struct {
	rate     float64
	burst    float64
	limiters map[string]*RateLimiter
	mu       sync.Mutex
}

// NewKeyedLimiter создает фабрику ограничителей с общими параметрами
func NewKeyedLimiter(rate, burst float64) *KeyedLimiter {
	return &KeyedLimiter{
		rate:     rate,
		burst:    burst,
		limiters: make(map[string]*RateLimiter),
	}
}

// Allow забирает токен из ведра ключа key
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	limiter, ok := kl.limiters[key]
	if !ok {
		limiter = NewRateLimiter(kl.rate, kl.burst)
		kl.limiters[key] = limiter
	}
	kl.mu.Unlock()

	return limiter.Allow()
}

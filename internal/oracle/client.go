// Package oracle - получение цен активов в USD.
// Живые цены берутся из внешнего API, при его недоступности -
// последний сохраненный снимок из БД.
package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"mib/pkg/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIError - ошибка внешнего API цен с HTTP статусом
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("price api returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable сообщает retry-пакету, имеет ли смысл повторять запрос.
// 5xx и 429 - временные, остальные статусы повторять бесполезно.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ClientConfig - настройки клиента API цен
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RatePerSec - лимит исходящих запросов. Публичные price API
	// банят за превышение, поэтому ограничиваем себя сами.
	RatePerSec float64
	Burst      float64
}

// Client - HTTP клиент внешнего API цен (формат simple price:
// GET /simple/price?ids=bitcoin&vs_currencies=usd)
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.RateLimiter
}

// NewClient создает клиент API цен
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RatePerSec * 2
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.NewRateLimiter(cfg.RatePerSec, cfg.Burst),
	}
}

// simplePriceEntry - цена одного актива в ответе API
type simplePriceEntry struct {
	USD float64 `json:"usd"`
}

// FetchPriceUSD запрашивает текущую цену актива по его
// идентификатору в API (например, "bitcoin").
func (c *Client) FetchPriceUSD(ctx context.Context, oracleID string) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(oracleID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read price response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed map[string]simplePriceEntry
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse price response: %w", err)
	}

	entry, ok := parsed[oracleID]
	if !ok || entry.USD <= 0 {
		return decimal.Zero, fmt.Errorf("price api returned no usable price for %q", oracleID)
	}

	return decimal.NewFromFloat(entry.USD), nil
}

package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mib/pkg/retry"
)

func newTestClient(serverURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:    serverURL,
		RatePerSec: 1000,
		Burst:      1000,
	})
}

func TestClientFetchPriceUSD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("ids") != "bitcoin" {
			t.Errorf("unexpected ids: %s", r.URL.Query().Get("ids"))
		}
		if r.URL.Query().Get("vs_currencies") != "usd" {
			t.Errorf("unexpected vs_currencies: %s", r.URL.Query().Get("vs_currencies"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":115000.5}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	price, err := client.FetchPriceUSD(context.Background(), "bitcoin")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.String() != "115000.5" {
		t.Errorf("expected price 115000.5, got %s", price)
	}
}

func TestClientFetchPriceUSDSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret-key" {
			t.Errorf("expected api key header, got %q", r.Header.Get("X-API-Key"))
		}
		w.Write([]byte(`{"gold":{"usd":85.2}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "secret-key",
		RatePerSec: 1000,
	})

	if _, err := client.FetchPriceUSD(context.Background(), "gold"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientFetchPriceUSDErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
		wantAPIError  bool
	}{
		{"server error is retryable", http.StatusInternalServerError, "oops", true, true},
		{"rate limited is retryable", http.StatusTooManyRequests, "slow down", true, true},
		{"not found is permanent", http.StatusNotFound, "no such coin", false, true},
		{"missing symbol in body", http.StatusOK, `{"other":{"usd":1}}`, true, false},
		{"zero price", http.StatusOK, `{"bitcoin":{"usd":0}}`, true, false},
		{"garbage body", http.StatusOK, `{not json`, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.FetchPriceUSD(context.Background(), "bitcoin")

			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var apiErr *APIError
			if errors.As(err, &apiErr) != tt.wantAPIError {
				t.Errorf("APIError presence mismatch: %v", err)
			}
			if got := retry.IsRetryable(err); got != tt.wantRetryable {
				t.Errorf("expected retryable=%v, got %v for %v", tt.wantRetryable, got, err)
			}
		})
	}
}

func TestClientFetchPriceUSDContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":115000}}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	if _, err := client.FetchPriceUSD(ctx, "bitcoin"); err == nil {
		t.Error("expected error with cancelled context")
	}
}

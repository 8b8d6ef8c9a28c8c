// Package metrics - Prometheus метрики приложения.
// Экспортируются через /metrics, визуализация - Grafana.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Торговые метрики ============

// TradesTotal - количество исполненных сделок
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mib",
		Subsystem: "trading",
		Name:      "trades_total",
		Help:      "Total number of executed trades",
	},
	[]string{"asset", "side"}, // side: buy, sell
)

// TradeRejections - отклоненные сделки по причинам
var TradeRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mib",
		Subsystem: "trading",
		Name:      "trade_rejections_total",
		Help:      "Total number of rejected trades",
	},
	[]string{"reason"}, // insufficient_balance, asset_locked, price_unavailable, validation
)

// TradeExecutionDuration - время исполнения сделки, включая
// транзакцию БД
var TradeExecutionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "mib",
		Subsystem: "trading",
		Name:      "trade_execution_duration_seconds",
		Help:      "Time to execute a trade including the database transaction",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"side"},
)

// ============ Метрики оракула цен ============

// PriceFetches - запросы цен по источникам и результатам
var PriceFetches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mib",
		Subsystem: "oracle",
		Name:      "price_fetches_total",
		Help:      "Total number of price lookups",
	},
	[]string{"source", "result"}, // source: live, snapshot, default; result: ok, error
)

// PriceFetchDuration - время обращения к внешнему API цен
var PriceFetchDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "mib",
		Subsystem: "oracle",
		Name:      "price_fetch_duration_seconds",
		Help:      "Time to fetch a price from the external API",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
)

// ============ HTTP метрики ============

// HTTPRequestDuration - длительность HTTP запросов
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "mib",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"method", "path", "status"},
)

// HTTPRequestsInFlight - количество запросов в обработке
var HTTPRequestsInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "mib",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served",
	},
)

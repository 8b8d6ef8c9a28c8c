package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"mib/internal/metrics"
)

// Metrics записывает длительность каждого запроса и число запросов
// в обработке. Меткой path служит шаблон маршрута mux, а не сырой
// URL, чтобы {id} и {symbol} не раздували кардинальность.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}

		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

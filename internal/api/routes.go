package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mib/internal/api/handlers"
	"mib/internal/api/middleware"
	"mib/internal/service"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	AuthService       service.AuthServiceInterface
	TradeService      service.TradeServiceInterface
	PortfolioService  service.PortfolioServiceInterface
	SuggestionService service.SuggestionServiceInterface

	// AllowedOrigins - origins, которым разрешены браузерные запросы
	AllowedOrigins map[string]struct{}

	Logger *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения.
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /auth/
//	│   ├── POST /request-link - запросить ссылку входа (без сессии)
//	│   ├── POST /verify - обменять токен ссылки на сессию (без сессии)
//	│   └── GET  /me - текущий пользователь
//	├── /assets/
//	│   └── GET / - каталог торгуемых активов (без сессии)
//	├── /trades/
//	│   ├── POST /execute - исполнить сделку
//	│   ├── POST /preview - рассчитать без исполнения
//	│   ├── GET  /history - история сделок
//	│   └── GET  /lock-info/{symbol} - блокировки по активу
//	├── /portfolio/
//	│   ├── GET / - позиции по текущим ценам
//	│   └── GET /performance - результат против 1 BTC
//	├── /suggestions/
//	│   ├── POST / - отправить предложение
//	│   └── GET  / - свои последние предложения
//	└── /admin/users/{id}/
//	    ├── GET  /verify - сверка леджера с историей
//	    └── POST /rebuild - восстановление из истории
//
// /health - проверка живости
// /metrics - Prometheus метрики
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. Metrics (для всех маршрутов)
// 4. CORS (для всех маршрутов)
// 5. Auth (для маршрутов с сессией)
// 6. RequireAdmin (только /admin)
func SetupRoutes(deps *Dependencies) *mux.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Metrics)
	router.Use(middleware.CORS(deps.AllowedOrigins))

	authHandler := handlers.NewAuthHandler(deps.AuthService)
	tradeHandler := handlers.NewTradeHandler(deps.TradeService)
	portfolioHandler := handlers.NewPortfolioHandler(deps.PortfolioService)
	suggestionHandler := handlers.NewSuggestionHandler(deps.SuggestionService)
	assetHandler := handlers.NewAssetHandler()
	adminHandler := handlers.NewAdminHandler(deps.PortfolioService)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Публичные маршруты: вход и каталог активов
	api.HandleFunc("/auth/request-link", authHandler.RequestLink).Methods("POST")
	api.HandleFunc("/auth/verify", authHandler.Verify).Methods("POST")
	api.HandleFunc("/assets", assetHandler.GetAssets).Methods("GET")

	// Маршруты с сессией
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Auth(deps.AuthService))

	authed.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	authed.HandleFunc("/trades/execute", tradeHandler.Execute).Methods("POST")
	authed.HandleFunc("/trades/preview", tradeHandler.Preview).Methods("POST")
	authed.HandleFunc("/trades/history", tradeHandler.History).Methods("GET")
	authed.HandleFunc("/trades/lock-info/{symbol}", tradeHandler.LockInfo).Methods("GET")

	authed.HandleFunc("/portfolio", portfolioHandler.GetPortfolio).Methods("GET")
	authed.HandleFunc("/portfolio/performance", portfolioHandler.GetPerformance).Methods("GET")

	authed.HandleFunc("/suggestions", suggestionHandler.Submit).Methods("POST")
	authed.HandleFunc("/suggestions", suggestionHandler.Recent).Methods("GET")

	// Административные маршруты
	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/users/{id}/verify", adminHandler.Verify).Methods("GET")
	admin.HandleFunc("/users/{id}/rebuild", adminHandler.Rebuild).Methods("POST")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

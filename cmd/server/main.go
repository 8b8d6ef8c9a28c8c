package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mib/internal/api"
	"mib/internal/config"
	"mib/internal/oracle"
	"mib/internal/repository"
	"mib/internal/service"
	"mib/pkg/ratelimit"
	"mib/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()),
			zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Схема создается идемпотентно при каждом старте
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := repository.InitSchema(ctx, db)
		cancel()
		if err != nil {
			logger.Fatal("failed to init schema", zap.Error(err))
		}
	}

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	authRepo := repository.NewAuthRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	// Оракул цен: живой API -> снимок из БД -> цена по умолчанию
	priceClient := oracle.NewClient(oracle.ClientConfig{
		BaseURL:    cfg.Oracle.BaseURL,
		APIKey:     cfg.Oracle.APIKey,
		Timeout:    cfg.Oracle.Timeout,
		RatePerSec: cfg.Oracle.RatePerSec,
		Burst:      cfg.Oracle.Burst,
	})
	priceOracle := oracle.New(priceClient, priceRepo, oracle.Config{
		DefaultBTCPriceUSD: decimal.NewFromInt(cfg.Oracle.DefaultBTCPriceUSD),
		SnapshotMaxAge:     cfg.Oracle.SnapshotMaxAge,
	}, logger.Named("oracle"))

	// Инициализация сервисов
	authService := service.NewAuthService(authRepo, userRepo, service.AuthConfig{
		LinkTTL:      cfg.Auth.LinkTTL,
		SessionTTL:   cfg.Auth.SessionTTL,
		BaseURL:      cfg.Auth.BaseURL,
		AdminEmails:  cfg.Auth.AdminEmails,
		LinksPerHour: cfg.Auth.LinksPerHour,
		LinkBurst:    cfg.Auth.LinkBurst,
	}, logger.Named("auth"))

	tradeService := service.NewTradeService(
		ledgerRepo, purchaseRepo, tradeRepo, priceOracle, logger.Named("trade"))

	portfolioService := service.NewPortfolioService(
		userRepo, holdingRepo, purchaseRepo, tradeRepo, ledgerRepo, priceOracle,
		logger.Named("portfolio"))

	suggestionLimiter := ratelimit.NewKeyedLimiter(
		cfg.Limits.SuggestionsPerHour/3600, cfg.Limits.SuggestionsBurst)
	suggestionService := service.NewSuggestionService(
		suggestionRepo, suggestionLimiter, logger.Named("suggestion"))

	// Фоновая чистка просроченных токенов и сессий
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go runAuthCleanup(cleanupCtx, authRepo, cfg.Auth.CleanupInterval, logger)

	// Настройка HTTP роутера
	router := api.SetupRoutes(&api.Dependencies{
		AuthService:       authService,
		TradeService:      tradeService,
		PortfolioService:  portfolioService,
		SuggestionService: suggestionService,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		Logger:            logger.Named("http"),
	})

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cleanupCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runAuthCleanup периодически удаляет просроченные токены входа и
// сессии
func runAuthCleanup(ctx context.Context, authRepo *repository.AuthRepository, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authRepo.DeleteExpired(ctx, time.Now().UTC()); err != nil {
				logger.Warn("auth cleanup failed", zap.Error(err))
			}
		}
	}
}

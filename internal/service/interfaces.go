package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"mib/internal/models"
	"mib/internal/oracle"
	"mib/internal/repository"
)

// UserRepositoryInterface определяет интерфейс репозитория пользователей
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
}

// HoldingRepositoryInterface определяет интерфейс репозитория балансов
type HoldingRepositoryInterface interface {
	GetByUser(ctx context.Context, userID int64) ([]*models.Holding, error)
	Get(ctx context.Context, userID int64, asset string) (*models.Holding, error)
}

// PurchaseRepositoryInterface определяет интерфейс репозитория лотов
type PurchaseRepositoryInterface interface {
	GetOpenByUserAsset(ctx context.Context, userID int64, asset string) ([]*models.Purchase, error)
	GetOpenByUser(ctx context.Context, userID int64) ([]*models.Purchase, error)
}

// TradeRepositoryInterface определяет интерфейс репозитория сделок
type TradeRepositoryInterface interface {
	GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Trade, error)
	GetChronological(ctx context.Context, userID int64) ([]*models.Trade, error)
}

// LedgerRepositoryInterface определяет интерфейс транзакционной записи
// сделок
type LedgerRepositoryInterface interface {
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
}

// PriceRepositoryInterface определяет интерфейс снимков цен
type PriceRepositoryInterface interface {
	Upsert(ctx context.Context, snapshot *models.PriceSnapshot) error
	Get(ctx context.Context, symbol string) (*models.PriceSnapshot, error)
}

// AuthRepositoryInterface определяет интерфейс репозитория
// токенов входа и сессий
type AuthRepositoryInterface interface {
	CreateLoginToken(ctx context.Context, token *models.LoginToken) error
	GetLoginToken(ctx context.Context, id int64) (*models.LoginToken, error)
	MarkTokenUsed(ctx context.Context, id int64) error
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	DeleteExpired(ctx context.Context, now time.Time) error
}

// SuggestionRepositoryInterface определяет интерфейс репозитория
// предложений
type SuggestionRepositoryInterface interface {
	Create(ctx context.Context, s *models.Suggestion) error
	GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Suggestion, error)
}

// PriceOracleInterface определяет интерфейс оракула цен
type PriceOracleInterface interface {
	GetPriceUSD(ctx context.Context, asset models.Asset) (decimal.Decimal, error)
}

// Проверяем, что реальные реализации удовлетворяют интерфейсам
var _ UserRepositoryInterface = (*repository.UserRepository)(nil)
var _ HoldingRepositoryInterface = (*repository.HoldingRepository)(nil)
var _ PurchaseRepositoryInterface = (*repository.PurchaseRepository)(nil)
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
var _ LedgerRepositoryInterface = (*repository.LedgerRepository)(nil)
var _ PriceRepositoryInterface = (*repository.PriceRepository)(nil)
var _ AuthRepositoryInterface = (*repository.AuthRepository)(nil)
var _ SuggestionRepositoryInterface = (*repository.SuggestionRepository)(nil)
var _ PriceOracleInterface = (*oracle.Oracle)(nil)

// ============ Интерфейсы сервисов для HTTP-слоя ============

// TradeServiceInterface определяет интерфейс торгового движка
type TradeServiceInterface interface {
	ExecuteBuy(ctx context.Context, userID int64, symbol string, btcAmountSats int64) (*TradeResult, error)
	ExecuteSell(ctx context.Context, userID int64, symbol string, assetAmount int64) (*TradeResult, error)
	Preview(ctx context.Context, userID int64, side string, symbol string, amount int64) (*TradePreview, error)
	LockInfo(ctx context.Context, userID int64, symbol string) (*LockStatus, error)
	History(ctx context.Context, userID int64, limit int) ([]*TradeRecord, error)
}

// PortfolioServiceInterface определяет интерфейс оценки портфеля
type PortfolioServiceInterface interface {
	GetPortfolio(ctx context.Context, userID int64) (*Portfolio, error)
	GetPerformance(ctx context.Context, userID int64) (*Performance, error)
	Rebuild(ctx context.Context, userID int64) error
	Verify(ctx context.Context, userID int64) (*VerifyReport, error)
}

// AuthServiceInterface определяет интерфейс аутентификации
type AuthServiceInterface interface {
	RequestLink(ctx context.Context, email string) error
	VerifyLink(ctx context.Context, linkToken string) (*AuthResult, error)
	Authenticate(ctx context.Context, sessionToken string) (*models.User, error)
}

// SuggestionServiceInterface определяет интерфейс предложений
type SuggestionServiceInterface interface {
	Submit(ctx context.Context, userID int64, body string) (*models.Suggestion, error)
	Recent(ctx context.Context, userID int64, limit int) ([]*models.Suggestion, error)
}

var _ TradeServiceInterface = (*TradeService)(nil)
var _ PortfolioServiceInterface = (*PortfolioService)(nil)
var _ AuthServiceInterface = (*AuthService)(nil)
var _ SuggestionServiceInterface = (*SuggestionService)(nil)

package handlers

import (
	"context"
	"errors"

	"mib/internal/models"
	"mib/internal/service"
)

// errMockInternal имитирует неожиданную ошибку нижних слоев
var errMockInternal = errors.New("mock: database gone")

// ============ Mock TradeService ============

type mockTradeService struct {
	result  *service.TradeResult
	preview *service.TradePreview
	lock    *service.LockStatus
	records []*service.TradeRecord
	err     error

	// последний вызов
	lastUserID int64
	lastSide   string
	lastAsset  string
	lastAmount int64
}

func (m *mockTradeService) ExecuteBuy(ctx context.Context, userID int64, symbol string, btcAmountSats int64) (*service.TradeResult, error) {
	m.lastUserID, m.lastSide, m.lastAsset, m.lastAmount = userID, models.TradeSideBuy, symbol, btcAmountSats
	return m.result, m.err
}

func (m *mockTradeService) ExecuteSell(ctx context.Context, userID int64, symbol string, assetAmount int64) (*service.TradeResult, error) {
	m.lastUserID, m.lastSide, m.lastAsset, m.lastAmount = userID, models.TradeSideSell, symbol, assetAmount
	return m.result, m.err
}

func (m *mockTradeService) Preview(ctx context.Context, userID int64, side string, symbol string, amount int64) (*service.TradePreview, error) {
	m.lastUserID, m.lastSide, m.lastAsset, m.lastAmount = userID, side, symbol, amount
	return m.preview, m.err
}

func (m *mockTradeService) LockInfo(ctx context.Context, userID int64, symbol string) (*service.LockStatus, error) {
	m.lastUserID, m.lastAsset = userID, symbol
	return m.lock, m.err
}

func (m *mockTradeService) History(ctx context.Context, userID int64, limit int) ([]*service.TradeRecord, error) {
	m.lastUserID = userID
	return m.records, m.err
}

// ============ Mock PortfolioService ============

type mockPortfolioService struct {
	portfolio *service.Portfolio
	perf      *service.Performance
	report    *service.VerifyReport
	err       error

	rebuiltUserID int64
}

func (m *mockPortfolioService) GetPortfolio(ctx context.Context, userID int64) (*service.Portfolio, error) {
	return m.portfolio, m.err
}

func (m *mockPortfolioService) GetPerformance(ctx context.Context, userID int64) (*service.Performance, error) {
	return m.perf, m.err
}

func (m *mockPortfolioService) Rebuild(ctx context.Context, userID int64) error {
	m.rebuiltUserID = userID
	return m.err
}

func (m *mockPortfolioService) Verify(ctx context.Context, userID int64) (*service.VerifyReport, error) {
	return m.report, m.err
}

// ============ Mock AuthService ============

type mockAuthService struct {
	result      *service.AuthResult
	sessionUser *models.User
	err         error

	lastEmail string
	lastToken string
}

func (m *mockAuthService) RequestLink(ctx context.Context, email string) error {
	m.lastEmail = email
	return m.err
}

func (m *mockAuthService) VerifyLink(ctx context.Context, linkToken string) (*service.AuthResult, error) {
	m.lastToken = linkToken
	return m.result, m.err
}

func (m *mockAuthService) Authenticate(ctx context.Context, sessionToken string) (*models.User, error) {
	m.lastToken = sessionToken
	if m.err != nil {
		return nil, m.err
	}
	if m.sessionUser == nil {
		return nil, service.ErrInvalidToken
	}
	return m.sessionUser, nil
}

// ============ Mock SuggestionService ============

type mockSuggestionService struct {
	suggestion *models.Suggestion
	recent     []*models.Suggestion
	err        error

	lastBody string
}

func (m *mockSuggestionService) Submit(ctx context.Context, userID int64, body string) (*models.Suggestion, error) {
	m.lastBody = body
	return m.suggestion, m.err
}

func (m *mockSuggestionService) Recent(ctx context.Context, userID int64, limit int) ([]*models.Suggestion, error) {
	return m.recent, m.err
}

// Проверяем, что mocks удовлетворяют интерфейсам
var _ service.TradeServiceInterface = (*mockTradeService)(nil)
var _ service.PortfolioServiceInterface = (*mockPortfolioService)(nil)
var _ service.AuthServiceInterface = (*mockAuthService)(nil)
var _ service.SuggestionServiceInterface = (*mockSuggestionService)(nil)

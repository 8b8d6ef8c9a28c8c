package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"mib/internal/models"
	"mib/internal/oracle"
	"mib/internal/repository"
)

// ============ In-memory ledger store ============

// memStore holds the entire ledger state for one test. The mock
// repositories and the mock transaction all read and write the same
// store, so read paths (preview, portfolio) see what the write
// paths (execute, rebuild) produced.
type memStore struct {
	holdings map[int64]map[string]int64
	lots     []*models.Purchase
	trades   []*models.Trade
	users    map[int64]*models.User

	nextLotID   int64
	nextTradeID int64

	// failure injection
	insertTradeErr    error
	insertPurchaseErr error
}

func newMemStore() *memStore {
	return &memStore{
		holdings:    make(map[int64]map[string]int64),
		users:       make(map[int64]*models.User),
		nextLotID:   1,
		nextTradeID: 1,
	}
}

func (m *memStore) addUser(u *models.User) {
	m.users[u.ID] = u
}

func (m *memStore) setHolding(userID int64, asset string, amount int64) {
	if m.holdings[userID] == nil {
		m.holdings[userID] = make(map[string]int64)
	}
	m.holdings[userID][asset] = amount
}

func (m *memStore) holding(userID int64, asset string) int64 {
	return m.holdings[userID][asset]
}

func (m *memStore) addLot(lot *models.Purchase) *models.Purchase {
	lot.ID = m.nextLotID
	m.nextLotID++
	m.lots = append(m.lots, lot)
	return lot
}

func (m *memStore) addTrade(t *models.Trade) *models.Trade {
	t.ID = m.nextTradeID
	m.nextTradeID++
	m.trades = append(m.trades, t)
	return t
}

func (m *memStore) openLots(userID int64, asset string) []*models.Purchase {
	var lots []*models.Purchase
	for _, lot := range m.lots {
		if lot.UserID == userID && lot.Remaining() > 0 && (asset == "" || lot.Asset == asset) {
			lots = append(lots, lot)
		}
	}
	return lots
}

// snapshot deep-copies the mutable state so a failed transaction can
// be rolled back
func (m *memStore) snapshot() *memStore {
	s := &memStore{
		holdings:          make(map[int64]map[string]int64, len(m.holdings)),
		lots:              make([]*models.Purchase, len(m.lots)),
		trades:            make([]*models.Trade, len(m.trades)),
		users:             m.users,
		nextLotID:         m.nextLotID,
		nextTradeID:       m.nextTradeID,
		insertTradeErr:    m.insertTradeErr,
		insertPurchaseErr: m.insertPurchaseErr,
	}
	for userID, byAsset := range m.holdings {
		s.holdings[userID] = make(map[string]int64, len(byAsset))
		for asset, amount := range byAsset {
			s.holdings[userID][asset] = amount
		}
	}
	for i, lot := range m.lots {
		c := *lot
		s.lots[i] = &c
	}
	copy(s.trades, m.trades)
	return s
}

func (m *memStore) restore(s *memStore) {
	m.holdings = s.holdings
	m.lots = s.lots
	m.trades = s.trades
	m.nextLotID = s.nextLotID
	m.nextTradeID = s.nextTradeID
}

// ============ Mock LedgerRepository ============

type mockLedgerRepo struct {
	store *memStore
}

func (r *mockLedgerRepo) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	backup := r.store.snapshot()
	if err := fn(&memTx{store: r.store}); err != nil {
		r.store.restore(backup)
		return err
	}
	return nil
}

// memTx implements repository.Tx over memStore
type memTx struct {
	store *memStore
}

func (t *memTx) HoldingForUpdate(ctx context.Context, userID int64, asset string) (*models.Holding, error) {
	byAsset, ok := t.store.holdings[userID]
	if !ok {
		return nil, repository.ErrHoldingNotFound
	}
	amount, ok := byAsset[asset]
	if !ok {
		return nil, repository.ErrHoldingNotFound
	}
	return &models.Holding{UserID: userID, Asset: asset, Amount: amount}, nil
}

func (t *memTx) AdjustHolding(ctx context.Context, userID int64, asset string, delta int64) (int64, error) {
	if t.store.holdings[userID] == nil {
		t.store.holdings[userID] = make(map[string]int64)
	}
	t.store.holdings[userID][asset] += delta
	return t.store.holdings[userID][asset], nil
}

func (t *memTx) OpenLotsForUpdate(ctx context.Context, userID int64, asset string) ([]*models.Purchase, error) {
	return t.store.openLots(userID, asset), nil
}

func (t *memTx) InsertPurchase(ctx context.Context, p *models.Purchase) error {
	if t.store.insertPurchaseErr != nil {
		return t.store.insertPurchaseErr
	}
	t.store.addLot(p)
	return nil
}

func (t *memTx) SetLotConsumed(ctx context.Context, lotID int64, consumed int64) error {
	for _, lot := range t.store.lots {
		if lot.ID == lotID {
			lot.Consumed = consumed
			return nil
		}
	}
	return repository.ErrHoldingNotFound
}

func (t *memTx) InsertTrade(ctx context.Context, trade *models.Trade) error {
	if t.store.insertTradeErr != nil {
		return t.store.insertTradeErr
	}
	t.store.addTrade(trade)
	return nil
}

func (t *memTx) DeleteUserLedger(ctx context.Context, userID int64) error {
	var lots []*models.Purchase
	for _, lot := range t.store.lots {
		if lot.UserID != userID {
			lots = append(lots, lot)
		}
	}
	t.store.lots = lots
	delete(t.store.holdings, userID)
	return nil
}

func (t *memTx) TradesChronological(ctx context.Context, userID int64) ([]*models.Trade, error) {
	var trades []*models.Trade
	for _, tr := range t.store.trades {
		if tr.UserID == userID {
			trades = append(trades, tr)
		}
	}
	return trades, nil
}

// ============ Mock read repositories over the same store ============

type mockUserRepo struct {
	store     *memStore
	nextID    int64
	createErr error
}

func (r *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.store.users {
		if u.Email == user.Email {
			return repository.ErrUserExists
		}
	}
	if r.nextID == 0 {
		r.nextID = 1
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	r.store.addUser(user)
	r.store.setHolding(user.ID, models.SymbolBTC, models.StartingBalanceSats)
	return nil
}

func (r *mockUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.store.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *mockUserRepo) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	u, ok := r.store.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsAdmin = isAdmin
	return nil
}

type mockHoldingRepo struct {
	store *memStore
}

func (r *mockHoldingRepo) GetByUser(ctx context.Context, userID int64) ([]*models.Holding, error) {
	var holdings []*models.Holding
	// BTC first for deterministic ordering in tests
	if amount, ok := r.store.holdings[userID][models.SymbolBTC]; ok {
		holdings = append(holdings, &models.Holding{UserID: userID, Asset: models.SymbolBTC, Amount: amount})
	}
	for _, asset := range models.SupportedAssets() {
		if amount, ok := r.store.holdings[userID][asset.Symbol]; ok {
			holdings = append(holdings, &models.Holding{UserID: userID, Asset: asset.Symbol, Amount: amount})
		}
	}
	return holdings, nil
}

func (r *mockHoldingRepo) Get(ctx context.Context, userID int64, asset string) (*models.Holding, error) {
	amount, ok := r.store.holdings[userID][asset]
	if !ok {
		return nil, repository.ErrHoldingNotFound
	}
	return &models.Holding{UserID: userID, Asset: asset, Amount: amount}, nil
}

type mockPurchaseRepo struct {
	store *memStore
}

func (r *mockPurchaseRepo) GetOpenByUserAsset(ctx context.Context, userID int64, asset string) ([]*models.Purchase, error) {
	return r.store.openLots(userID, asset), nil
}

func (r *mockPurchaseRepo) GetOpenByUser(ctx context.Context, userID int64) ([]*models.Purchase, error) {
	return r.store.openLots(userID, ""), nil
}

type mockTradeRepo struct {
	store *memStore
}

func (r *mockTradeRepo) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Trade, error) {
	var trades []*models.Trade
	for i := len(r.store.trades) - 1; i >= 0 && len(trades) < limit; i-- {
		if r.store.trades[i].UserID == userID {
			trades = append(trades, r.store.trades[i])
		}
	}
	return trades, nil
}

func (r *mockTradeRepo) GetChronological(ctx context.Context, userID int64) ([]*models.Trade, error) {
	var trades []*models.Trade
	for _, t := range r.store.trades {
		if t.UserID == userID {
			trades = append(trades, t)
		}
	}
	return trades, nil
}

// ============ Mock AuthRepository ============

type mockAuthRepo struct {
	tokens      map[int64]*models.LoginToken
	sessions    map[int64]*models.Session
	nextToken   int64
	nextSession int64
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		tokens:      make(map[int64]*models.LoginToken),
		sessions:    make(map[int64]*models.Session),
		nextToken:   1,
		nextSession: 1,
	}
}

func (r *mockAuthRepo) CreateLoginToken(ctx context.Context, token *models.LoginToken) error {
	token.ID = r.nextToken
	r.nextToken++
	token.CreatedAt = time.Now()
	r.tokens[token.ID] = token
	return nil
}

func (r *mockAuthRepo) GetLoginToken(ctx context.Context, id int64) (*models.LoginToken, error) {
	t, ok := r.tokens[id]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	return t, nil
}

func (r *mockAuthRepo) MarkTokenUsed(ctx context.Context, id int64) error {
	t, ok := r.tokens[id]
	if !ok || t.Used {
		return repository.ErrTokenNotFound
	}
	t.Used = true
	return nil
}

func (r *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = r.nextSession
	r.nextSession++
	session.CreatedAt = time.Now()
	r.sessions[session.ID] = session
	return nil
}

func (r *mockAuthRepo) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return s, nil
}

func (r *mockAuthRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	for id, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.tokens, id)
		}
	}
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.sessions, id)
		}
	}
	return nil
}

// ============ Mock SuggestionRepository ============

type mockSuggestionRepo struct {
	suggestions []*models.Suggestion
	nextID      int64
	createErr   error
}

func (r *mockSuggestionRepo) Create(ctx context.Context, s *models.Suggestion) error {
	if r.createErr != nil {
		return r.createErr
	}
	if r.nextID == 0 {
		r.nextID = 1
	}
	s.ID = r.nextID
	r.nextID++
	s.CreatedAt = time.Now()
	r.suggestions = append(r.suggestions, s)
	return nil
}

func (r *mockSuggestionRepo) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Suggestion, error) {
	var result []*models.Suggestion
	for i := len(r.suggestions) - 1; i >= 0 && len(result) < limit; i-- {
		if r.suggestions[i].UserID == userID {
			result = append(result, r.suggestions[i])
		}
	}
	return result, nil
}

// ============ Mock PriceOracle ============

type mockOracle struct {
	prices map[string]decimal.Decimal
	err    error
}

func newMockOracle() *mockOracle {
	return &mockOracle{
		prices: map[string]decimal.Decimal{
			models.SymbolBTC: decimal.NewFromInt(50000),
			"AAPL":           decimal.NewFromInt(150),
			"MSFT":           decimal.NewFromInt(400),
			"XAU":            decimal.NewFromInt(2600),
		},
	}
}

func (m *mockOracle) GetPriceUSD(ctx context.Context, asset models.Asset) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Zero, m.err
	}
	price, ok := m.prices[asset.Symbol]
	if !ok {
		return decimal.Zero, oracle.ErrPriceUnavailable
	}
	return price, nil
}

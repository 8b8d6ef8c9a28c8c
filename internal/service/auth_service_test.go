package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"mib/internal/models"
	"mib/pkg/crypto"
)

type authEnv struct {
	store    *memStore
	authRepo *mockAuthRepo
	userRepo *mockUserRepo
	service  *AuthService
}

func newAuthEnv(adminEmails ...string) *authEnv {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[email] = struct{}{}
	}

	store := newMemStore()
	authRepo := newMockAuthRepo()
	userRepo := &mockUserRepo{store: store}

	svc := NewAuthService(authRepo, userRepo, AuthConfig{
		BaseURL:     "http://localhost:8080",
		AdminEmails: admins,
	}, zap.NewNop())

	return &authEnv{store: store, authRepo: authRepo, userRepo: userRepo, service: svc}
}

// issueLink creates a login token directly and returns the link token
// string the user would click
func (e *authEnv) issueLink(t *testing.T, email string, expiresAt time.Time) string {
	t.Helper()

	secret, err := crypto.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	hash, err := crypto.HashToken(secret)
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}

	token := &models.LoginToken{Email: email, TokenHash: hash, ExpiresAt: expiresAt}
	if err := e.authRepo.CreateLoginToken(context.Background(), token); err != nil {
		t.Fatalf("CreateLoginToken() error = %v", err)
	}
	return crypto.FormatToken(token.ID, secret)
}

// ============ IsAdmin ============

func TestIsAdmin(t *testing.T) {
	admins := map[string]struct{}{"admin@example.com": {}}

	tests := []struct {
		name   string
		user   *models.User
		admins map[string]struct{}
		want   bool
	}{
		{name: "nil user", user: nil, admins: admins, want: false},
		{name: "listed email", user: &models.User{Email: "admin@example.com"}, admins: admins, want: true},
		{name: "case insensitive", user: &models.User{Email: "Admin@Example.COM"}, admins: admins, want: true},
		{name: "unlisted email", user: &models.User{Email: "alice@example.com"}, admins: admins, want: false},
		{name: "nil set", user: &models.User{Email: "admin@example.com"}, admins: nil, want: false},
		{name: "stored flag without listing", user: &models.User{Email: "bob@example.com", IsAdmin: true}, admins: admins, want: true},
		{name: "stored flag with nil set", user: &models.User{Email: "bob@example.com", IsAdmin: true}, admins: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAdmin(tt.user, tt.admins); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ============ RequestLink ============

func TestAuthService_RequestLink(t *testing.T) {
	env := newAuthEnv()

	if err := env.service.RequestLink(context.Background(), "Alice@Example.com "); err != nil {
		t.Fatalf("RequestLink() error = %v", err)
	}

	token, err := env.authRepo.GetLoginToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected a stored login token: %v", err)
	}
	if token.Email != "alice@example.com" {
		t.Errorf("token email = %q, want normalized %q", token.Email, "alice@example.com")
	}
	if token.Used {
		t.Error("fresh token must not be marked used")
	}
	if time.Until(token.ExpiresAt) <= 0 {
		t.Errorf("token already expired: %v", token.ExpiresAt)
	}
}

func TestAuthService_RequestLink_InvalidEmail(t *testing.T) {
	env := newAuthEnv()

	for _, email := range []string{"", "not-an-email", "a b@example.com"} {
		if err := env.service.RequestLink(context.Background(), email); !errors.Is(err, ErrValidation) {
			t.Errorf("RequestLink(%q) error = %v, want ErrValidation", email, err)
		}
	}
}

func TestAuthService_RequestLink_RateLimited(t *testing.T) {
	env := newAuthEnv()
	env.service = NewAuthService(env.authRepo, env.userRepo, AuthConfig{
		BaseURL:      "http://localhost:8080",
		LinksPerHour: 0.001,
		LinkBurst:    2,
	}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := env.service.RequestLink(ctx, "alice@example.com"); err != nil {
			t.Fatalf("request %d within burst failed: %v", i+1, err)
		}
	}
	if err := env.service.RequestLink(ctx, "alice@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("RequestLink() error = %v, want ErrRateLimited", err)
	}

	// a different address has its own bucket
	if err := env.service.RequestLink(ctx, "bob@example.com"); err != nil {
		t.Errorf("unrelated address throttled: %v", err)
	}
}

// ============ VerifyLink ============

func TestAuthService_VerifyLink(t *testing.T) {
	env := newAuthEnv()
	ctx := context.Background()
	link := env.issueLink(t, "alice@example.com", time.Now().UTC().Add(15*time.Minute))

	result, err := env.service.VerifyLink(ctx, link)
	if err != nil {
		t.Fatalf("VerifyLink() error = %v", err)
	}

	// first login creates the account with the starting balance
	if result.User == nil || result.User.Email != "alice@example.com" {
		t.Fatalf("result user = %+v", result.User)
	}
	if result.User.Username != "alice" {
		t.Errorf("username = %q, want %q", result.User.Username, "alice")
	}
	if result.User.IsAdmin {
		t.Error("regular user must not be admin")
	}
	if got := env.store.holding(result.User.ID, models.SymbolBTC); got != models.StartingBalanceSats {
		t.Errorf("starting balance = %d sats, want %d", got, models.StartingBalanceSats)
	}

	// the returned session token must authenticate
	user, err := env.service.Authenticate(ctx, result.SessionToken)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != result.User.ID {
		t.Errorf("Authenticate() user = %d, want %d", user.ID, result.User.ID)
	}
}

func TestAuthService_VerifyLink_SingleUse(t *testing.T) {
	env := newAuthEnv()
	ctx := context.Background()
	link := env.issueLink(t, "alice@example.com", time.Now().UTC().Add(15*time.Minute))

	if _, err := env.service.VerifyLink(ctx, link); err != nil {
		t.Fatalf("first VerifyLink() error = %v", err)
	}
	if _, err := env.service.VerifyLink(ctx, link); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("second VerifyLink() error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthService_VerifyLink_Expired(t *testing.T) {
	env := newAuthEnv()
	link := env.issueLink(t, "alice@example.com", time.Now().UTC().Add(-time.Minute))

	if _, err := env.service.VerifyLink(context.Background(), link); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("VerifyLink() error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthService_VerifyLink_BadToken(t *testing.T) {
	env := newAuthEnv()
	ctx := context.Background()
	env.issueLink(t, "alice@example.com", time.Now().UTC().Add(15*time.Minute))

	tests := []struct {
		name  string
		token string
	}{
		{name: "malformed", token: "garbage"},
		{name: "unknown id", token: crypto.FormatToken(99, "deadbeef")},
		{name: "wrong secret", token: crypto.FormatToken(1, "deadbeef")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.service.VerifyLink(ctx, tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("VerifyLink() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestAuthService_VerifyLink_ExistingUser(t *testing.T) {
	env := newAuthEnv()
	ctx := context.Background()

	first := env.issueLink(t, "alice@example.com", time.Now().UTC().Add(15*time.Minute))
	r1, err := env.service.VerifyLink(ctx, first)
	if err != nil {
		t.Fatalf("VerifyLink() error = %v", err)
	}

	second := env.issueLink(t, "alice@example.com", time.Now().UTC().Add(15*time.Minute))
	r2, err := env.service.VerifyLink(ctx, second)
	if err != nil {
		t.Fatalf("second VerifyLink() error = %v", err)
	}

	if r1.User.ID != r2.User.ID {
		t.Errorf("second login created a new user: %d vs %d", r1.User.ID, r2.User.ID)
	}
	if len(env.store.users) != 1 {
		t.Errorf("users = %d, want 1", len(env.store.users))
	}
}

func TestAuthService_VerifyLink_AdminFlag(t *testing.T) {
	env := newAuthEnv()
	ctx := context.Background()

	// first login before the address is listed: a regular account
	link := env.issueLink(t, "root@example.com", time.Now().UTC().Add(15*time.Minute))
	result, err := env.service.VerifyLink(ctx, link)
	if err != nil {
		t.Fatalf("VerifyLink() error = %v", err)
	}
	if result.User.IsAdmin {
		t.Fatal("unlisted email must not get the admin flag")
	}

	// listing the address promotes the existing account on next login
	env.service.cfg.AdminEmails = map[string]struct{}{"root@example.com": {}}
	link = env.issueLink(t, "root@example.com", time.Now().UTC().Add(15*time.Minute))
	result, err = env.service.VerifyLink(ctx, link)
	if err != nil {
		t.Fatalf("VerifyLink() error = %v", err)
	}
	if !result.User.IsAdmin {
		t.Fatal("listed email must get the admin flag")
	}

	// delisting the address does not revoke a granted flag
	env.service.cfg.AdminEmails = nil
	link = env.issueLink(t, "root@example.com", time.Now().UTC().Add(15*time.Minute))
	result, err = env.service.VerifyLink(ctx, link)
	if err != nil {
		t.Fatalf("VerifyLink() error = %v", err)
	}
	if !result.User.IsAdmin {
		t.Error("granted admin flag must survive delisting")
	}
}

// ============ Authenticate ============

func TestAuthService_Authenticate_Invalid(t *testing.T) {
	env := newAuthEnv()
	ctx := context.Background()

	link := env.issueLink(t, "alice@example.com", time.Now().UTC().Add(15*time.Minute))
	result, err := env.service.VerifyLink(ctx, link)
	if err != nil {
		t.Fatalf("VerifyLink() error = %v", err)
	}

	sessionID, _, err := crypto.ParseToken(result.SessionToken)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		setup func()
	}{
		{name: "malformed", token: "no-dot-here"},
		{name: "unknown session", token: crypto.FormatToken(99, "deadbeef")},
		{name: "wrong secret", token: crypto.FormatToken(sessionID, "deadbeef")},
		{
			name:  "expired session",
			token: result.SessionToken,
			setup: func() {
				env.authRepo.sessions[sessionID].ExpiresAt = time.Now().UTC().Add(-time.Minute)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			if _, err := env.service.Authenticate(ctx, tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Authenticate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

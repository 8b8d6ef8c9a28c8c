package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"mib/internal/models"
	"mib/internal/repository"
	"mib/pkg/crypto"
	"mib/pkg/ratelimit"
	"mib/pkg/utils"
)

// AuthService - вход по одноразовой ссылке (magic link) и сессии.
//
// Пароли не хранятся вовсе: пользователь получает ссылку с
// одноразовым токеном, предъявляет его и взамен получает сессионный
// токен. В БД лежат только bcrypt-хэши токенов.
type AuthService struct {
	authRepo    AuthRepositoryInterface
	userRepo    UserRepositoryInterface
	cfg         AuthConfig
	linkLimiter *ratelimit.KeyedLimiter
	logger      *zap.Logger
}

// AuthConfig - настройки аутентификации
type AuthConfig struct {
	// LinkTTL - срок жизни одноразовой ссылки
	LinkTTL time.Duration

	// SessionTTL - срок жизни сессии
	SessionTTL time.Duration

	// BaseURL - адрес приложения для сборки ссылки входа
	BaseURL string

	// AdminEmails - адреса, получающие права администратора
	AdminEmails map[string]struct{}

	// LinksPerHour - лимит выдачи ссылок на один email.
	// 0 - без ограничения (для тестов).
	LinksPerHour float64

	// LinkBurst - допустимый всплеск подряд идущих запросов
	LinkBurst float64
}

// NewAuthService создает новый экземпляр AuthService
func NewAuthService(authRepo AuthRepositoryInterface, userRepo UserRepositoryInterface, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 15 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}

	var linkLimiter *ratelimit.KeyedLimiter
	if cfg.LinksPerHour > 0 {
		burst := cfg.LinkBurst
		if burst <= 0 {
			burst = 3
		}
		linkLimiter = ratelimit.NewKeyedLimiter(cfg.LinksPerHour/3600, burst)
	}

	return &AuthService{
		authRepo:    authRepo,
		userRepo:    userRepo,
		cfg:         cfg,
		linkLimiter: linkLimiter,
		logger:      logger,
	}
}

// IsAdmin сообщает, является ли пользователь администратором:
// либо флаг уже выставлен, либо адрес входит в список админских.
// Чистая функция от пользователя и множества адресов - без обращений
// к БД и внешнему состоянию.
func IsAdmin(user *models.User, adminEmails map[string]struct{}) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin {
		return true
	}
	_, ok := adminEmails[utils.NormalizeEmail(user.Email)]
	return ok
}

// AuthResult - итог успешного входа
type AuthResult struct {
	User         *models.User `json:"user"`
	SessionToken string       `json:"session_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// RequestLink создает одноразовую ссылку входа для email.
// Ссылка публикуется в лог сервера; внешней почтовой доставки нет.
// Для неизвестного email ссылка тоже создается - аккаунт появится
// при первом входе.
func (s *AuthService) RequestLink(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return NewValidationError("invalid email address")
	}
	if s.linkLimiter != nil && !s.linkLimiter.Allow(email) {
		return ErrRateLimited
	}

	secret, err := crypto.GenerateSecret()
	if err != nil {
		return err
	}
	hash, err := crypto.HashToken(secret)
	if err != nil {
		return err
	}

	token := &models.LoginToken{
		Email:     email,
		TokenHash: hash,
		ExpiresAt: time.Now().UTC().Add(s.cfg.LinkTTL),
	}
	if err := s.authRepo.CreateLoginToken(ctx, token); err != nil {
		return err
	}

	link := strings.TrimRight(s.cfg.BaseURL, "/") + "/login?token=" + crypto.FormatToken(token.ID, secret)
	s.logger.Info("login link issued",
		zap.String("email", email),
		zap.String("link", link),
		zap.Time("expires_at", token.ExpiresAt))

	return nil
}

// VerifyLink обменивает одноразовый токен ссылки на сессию.
// Токен сгорает после первого использования; повторное предъявление
// той же ссылки отклоняется.
func (s *AuthService) VerifyLink(ctx context.Context, linkToken string) (*AuthResult, error) {
	id, secret, err := crypto.ParseToken(linkToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	token, err := s.authRepo.GetLoginToken(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	now := time.Now().UTC()
	if token.Used || now.After(token.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	if err := crypto.VerifyToken(secret, token.TokenHash); err != nil {
		return nil, ErrInvalidToken
	}

	// Помечаем использованным до выдачи сессии; конфликт двух
	// одновременных предъявлений выигрывает ровно один
	if err := s.authRepo.MarkTokenUsed(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	user, err := s.getOrCreateUser(ctx, token.Email)
	if err != nil {
		return nil, err
	}

	return s.issueSession(ctx, user, now)
}

// getOrCreateUser находит пользователя по email либо создает его
// при первом входе. Попадание адреса в конфигурационный список
// повышает до администратора; удаление из списка уже выданный флаг
// не отзывает.
func (s *AuthService) getOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		if admin := IsAdmin(user, s.cfg.AdminEmails); admin && !user.IsAdmin {
			if err := s.userRepo.SetAdmin(ctx, user.ID, true); err != nil {
				return nil, err
			}
			user.IsAdmin = true
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	admin := IsAdmin(&models.User{Email: email}, s.cfg.AdminEmails)
	user = &models.User{
		Username: usernameFromEmail(email),
		Email:    email,
		IsAdmin:  admin,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Параллельный вход тем же email мог создать пользователя
		// первым
		if errors.Is(err, repository.ErrUserExists) {
			return s.userRepo.GetByEmail(ctx, email)
		}
		return nil, err
	}

	s.logger.Info("user created",
		zap.Int64("user_id", user.ID),
		zap.String("email", email),
		zap.Bool("is_admin", admin))

	return user, nil
}

// issueSession создает сессию и возвращает ее токен
func (s *AuthService) issueSession(ctx context.Context, user *models.User, now time.Time) (*AuthResult, error) {
	secret, err := crypto.GenerateSecret()
	if err != nil {
		return nil, err
	}
	hash, err := crypto.HashToken(secret)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.authRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		SessionToken: crypto.FormatToken(session.ID, secret),
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Authenticate проверяет сессионный токен и возвращает пользователя
func (s *AuthService) Authenticate(ctx context.Context, sessionToken string) (*models.User, error) {
	id, secret, err := crypto.ParseToken(sessionToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.authRepo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	if err := crypto.VerifyToken(secret, session.TokenHash); err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return user, nil
}

// usernameFromEmail выводит отображаемое имя из локальной части
// адреса
func usernameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return email
	}
	return name
}

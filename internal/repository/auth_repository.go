package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mib/internal/models"
)

// Ошибки репозитория аутентификации
var (
	ErrTokenNotFound   = errors.New("login token not found")
	ErrSessionNotFound = errors.New("session not found")
)

// AuthRepository - одноразовые токены входа и сессии
type AuthRepository struct {
	db *sql.DB
}

// NewAuthRepository создает новый экземпляр репозитория
func NewAuthRepository(db *sql.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// CreateLoginToken сохраняет хэш одноразового токена входа
func (r *AuthRepository) CreateLoginToken(ctx context.Context, token *models.LoginToken) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO login_tokens (email, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		token.Email, token.TokenHash, token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

// GetLoginToken возвращает токен входа по ID
func (r *AuthRepository) GetLoginToken(ctx context.Context, id int64) (*models.LoginToken, error) {
	t := &models.LoginToken{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, token_hash, expires_at, used, created_at
		FROM login_tokens
		WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Email, &t.TokenHash, &t.ExpiresAt, &t.Used, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return t, nil
}

// MarkTokenUsed помечает токен использованным. Возвращает
// ErrTokenNotFound, если токен уже использован или не существует -
// повторное применение одной и той же ссылки не проходит.
func (r *AuthRepository) MarkTokenUsed(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE login_tokens SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTokenNotFound
	}

	return nil
}

// CreateSession сохраняет хэш сессионного токена
func (r *AuthRepository) CreateSession(ctx context.Context, session *models.Session) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		session.UserID, session.TokenHash, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
}

// GetSession возвращает сессию по ID
func (r *AuthRepository) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM sessions
		WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return s, nil
}

// DeleteExpired удаляет просроченные токены входа и сессии.
// Вызывается периодически фоновой задачей.
func (r *AuthRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM login_tokens WHERE expires_at < $1`, now); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, now)
	return err
}

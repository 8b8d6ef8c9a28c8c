package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"mib/internal/models"
)

// Ошибки репозитория пользователей
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// pgUniqueViolation - код ошибки PostgreSQL для нарушения UNIQUE
const pgUniqueViolation = "23505"

// UserRepository - работа с таблицей users
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository создает новый экземпляр репозитория
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создает пользователя вместе со стартовым балансом 1 BTC.
// Обе записи создаются в одной транзакции: пользователя без баланса
// существовать не должно.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, email, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		user.Username, user.Email, user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO holdings (user_id, asset, amount)
		VALUES ($1, $2, $3)`,
		user.ID, models.SymbolBTC, models.StartingBalanceSats,
	)
	if err != nil {
		return fmt.Errorf("failed to create starting balance: %w", err)
	}

	return tx.Commit()
}

// GetByID возвращает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, is_admin, created_at
		FROM users
		WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.IsAdmin, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, is_admin, created_at
		FROM users
		WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Username, &user.Email, &user.IsAdmin, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// SetAdmin обновляет флаг администратора
func (r *UserRepository) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = $1 WHERE id = $2`, isAdmin, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

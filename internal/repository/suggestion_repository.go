package repository

import (
	"context"
	"database/sql"

	"mib/internal/models"
)

// SuggestionRepository - работа с таблицей suggestions
type SuggestionRepository struct {
	db *sql.DB
}

// NewSuggestionRepository создает новый экземпляр репозитория
func NewSuggestionRepository(db *sql.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// Create сохраняет предложение пользователя
func (r *SuggestionRepository) Create(ctx context.Context, s *models.Suggestion) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO suggestions (user_id, body)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		s.UserID, s.Body,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetRecentByUser возвращает последние предложения пользователя
func (r *SuggestionRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Suggestion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, body, created_at
		FROM suggestions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []*models.Suggestion
	for rows.Next() {
		s := &models.Suggestion{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Body, &s.CreatedAt); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return suggestions, nil
}

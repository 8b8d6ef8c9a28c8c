package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mib/internal/models"
	"mib/pkg/ratelimit"
	"mib/pkg/utils"
)

// SuggestionService - предложения пользователей (новые активы,
// пожелания). Отправка ограничена по частоте на пользователя,
// чтобы один аккаунт не заспамил таблицу.
type SuggestionService struct {
	suggestionRepo SuggestionRepositoryInterface
	limiter        *ratelimit.KeyedLimiter
	logger         *zap.Logger
}

// NewSuggestionService создает новый экземпляр SuggestionService
func NewSuggestionService(suggestionRepo SuggestionRepositoryInterface, limiter *ratelimit.KeyedLimiter, logger *zap.Logger) *SuggestionService {
	return &SuggestionService{
		suggestionRepo: suggestionRepo,
		limiter:        limiter,
		logger:         logger,
	}
}

// Submit сохраняет предложение пользователя
func (s *SuggestionService) Submit(ctx context.Context, userID int64, body string) (*models.Suggestion, error) {
	body = strings.TrimSpace(body)
	if err := utils.ValidateSuggestion(body); err != nil {
		return nil, NewValidationError("%v", err)
	}

	if !s.limiter.Allow(strconv.FormatInt(userID, 10)) {
		return nil, ErrRateLimited
	}

	suggestion := &models.Suggestion{
		UserID: userID,
		Body:   body,
	}
	if err := s.suggestionRepo.Create(ctx, suggestion); err != nil {
		return nil, err
	}

	s.logger.Info("suggestion submitted",
		zap.Int64("user_id", userID),
		zap.Int64("suggestion_id", suggestion.ID))

	return suggestion, nil
}

// Recent возвращает последние предложения пользователя
func (s *SuggestionService) Recent(ctx context.Context, userID int64, limit int) ([]*models.Suggestion, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	suggestions, err := s.suggestionRepo.GetRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []*models.Suggestion{}
	}

	return suggestions, nil
}

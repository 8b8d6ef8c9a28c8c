package middleware

import (
	"context"
	"net/http"
	"strings"

	"mib/internal/models"
)

// Authenticator проверяет сессионный токен и возвращает пользователя
type Authenticator interface {
	Authenticate(ctx context.Context, sessionToken string) (*models.User, error)
}

type contextKey string

const userContextKey contextKey = "user"

// UserFrom извлекает аутентифицированного пользователя из контекста
// запроса. Возвращает nil, если Auth middleware не отработал.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// WithUser кладет пользователя в контекст. Используется Auth и
// тестами handlers.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Auth проверяет заголовок Authorization: Bearer <token> и кладет
// пользователя в контекст запроса. Запросы без валидной сессии
// получают 401.
func Auth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin пропускает только администраторов. Ставится после Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFrom(r.Context())
		if user == nil {
			unauthorized(w)
			return
		}
		if !user.IsAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"admin access required","code":"forbidden"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required","code":"invalid_token"}`))
}

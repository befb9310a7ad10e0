package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/Totarae/LearningLog/internal/auth"
	"github.com/Totarae/LearningLog/internal/model"
	"go.uber.org/zap"
)

// UserLoader загружает пользователя по ID из сессии.
type UserLoader interface {
	User(ctx context.Context, id string) (*model.User, error)
}

// Session кладёт в контекст пользователя из сессионной куки.
// Кука удалённого пользователя сбрасывается, запрос идёт как анонимный.
func Session(a *auth.Auth, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := a.UserID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			user, err := users.User(r.Context(), userID)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					a.Logout(w)
				} else {
					logger.Error("load session user", zap.String("user_id", userID), zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// RequireLogin перенаправляет анонимные запросы на loginPath с ?next=.
func RequireLogin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.ForContext(r.Context()) == nil {
				http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAPIUser отвечает 401 в JSON на анонимные запросы.
func RequireAPIUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.ForContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

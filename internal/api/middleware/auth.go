package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/m04kA/Clinic-BookingService/internal/api/handlers"
	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	msgMissingAuth = "отсутствуют заголовки аутентификации"
	msgInvalidAuth = "некорректные заголовки аутентификации"
)

type actorContextKey struct{}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Auth извлекает пользователя из заголовков gateway и кладет его в контекст.
// Аутентификацию выполняет gateway, сервис доверяет заголовкам X-User-ID и X-User-Role.
func Auth(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userIDStr := r.Header.Get(headerUserID)
			roleStr := r.Header.Get(headerUserRole)

			if userIDStr == "" || roleStr == "" {
				logger.Warn("auth: missing headers, path=%s", r.URL.Path)
				handlers.RespondUnauthorized(w, msgMissingAuth)
				return
			}

			userID, err := strconv.ParseInt(userIDStr, 10, 64)
			if err != nil || userID <= 0 {
				logger.Warn("auth: invalid user id %q, path=%s", userIDStr, r.URL.Path)
				handlers.RespondUnauthorized(w, msgInvalidAuth)
				return
			}

			role := domain.Role(roleStr)
			if !role.IsValid() {
				logger.Warn("auth: invalid role %q, path=%s", roleStr, r.URL.Path)
				handlers.RespondUnauthorized(w, msgInvalidAuth)
				return
			}

			actor := domain.Actor{UserID: userID, Role: role}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
		})
	}
}

func withActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor возвращает пользователя из контекста запроса
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// GetUserID возвращает ID пользователя из контекста запроса
func GetUserID(ctx context.Context) (int64, bool) {
	actor, ok := GetActor(ctx)
	if !ok {
		return 0, false
	}
	return actor.UserID, true
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/auth"
	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type contextKey string

const actorKey contextKey = "actor"

// UserLookup re-reads the caller so suspensions apply before the token expires.
type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate validates the bearer token and stores the actor in the
// request context. Websocket clients may pass the token as ?token=.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			utils.Error(w, r, apperrors.New(apperrors.KindUnauthorized, "authorization header required"))
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			utils.Error(w, r, apperrors.New(apperrors.KindUnauthorized, "invalid or expired token"))
			return
		}

		// Check database for current user status (for immediate permission updates)
		user, err := m.users.Get(r.Context(), claims.UserID)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				utils.Error(w, r, apperrors.New(apperrors.KindUnauthorized, "user not found"))
				return
			}
			utils.Error(w, r, err)
			return
		}
		if !user.IsActive {
			utils.Error(w, r, apperrors.New(apperrors.KindForbidden, "account suspended, contact your administrator"))
			return
		}

		actor := models.Actor{UserID: user.ID, OwnerID: user.OwnerID, Role: user.Role}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireAdmin must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || !actor.IsAdmin() {
			utils.Error(w, r, apperrors.New(apperrors.KindForbidden, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated caller.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("token"); t != "" && isWebsocketUpgrade(r) {
			return t, true
		}
		return "", false
	}
	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"subsidy-crm/crm-service/logging"
	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/services"
	"subsidy-crm/crm-service/utils"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext returns the authenticated actor injected by the JWT
// middleware.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}

// JWTAuthMiddleware validates the bearer token, rejects revoked tokens and
// injects the actor into the request context.
func JWTAuthMiddleware(blacklist *services.TokenBlacklist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: Authorization header missing for request to %s %s", r.Method, r.URL.Path)
				utils.WriteError(w, utils.Unauthorized("authorization header missing"))
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := utils.ValidateToken(tokenStr)
			if err != nil {
				logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token for request to %s %s: %v", r.Method, r.URL.Path, err)
				utils.WriteError(w, utils.Unauthorized("invalid token"))
				return
			}
			if blacklist.IsRevoked(r.Context(), tokenStr) {
				utils.WriteError(w, utils.Unauthorized("token has been revoked"))
				return
			}

			actor := models.Actor{
				ID:       claims.UserID,
				Username: claims.Username,
				Role:     models.Role(claims.Role),
				Modules:  claims.Modules,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

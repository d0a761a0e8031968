package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/jupiterclapton/bestfit/internal/core/domain"
	"github.com/jupiterclapton/bestfit/internal/core/ports"
)

// Clé privée pour le contexte (évite les collisions)
type contextKey struct{ name string }

var userCtxKey = &contextKey{"current_user"}

// AuthMiddleware décode le header Authorization et valide le token via
// l'Identity Provider. Pas de header ? On laisse passer : les routes
// publiques (feed) n'exigent pas d'utilisateur, les routes protégées
// vérifient elles-mêmes via ForContext.
func AuthMiddleware(idp ports.IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Validation du format "Bearer <token>"
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Invalid token format", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")

			user, err := idp.CurrentUser(r.Context(), tokenStr)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Succès : on injecte l'utilisateur courant dans le contexte
			ctx := context.WithValue(r.Context(), userCtxKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ForContext récupère l'utilisateur courant injecté par le middleware.
// nil si la requête n'était pas authentifiée.
func ForContext(ctx context.Context) *domain.CurrentUser {
	user, _ := ctx.Value(userCtxKey).(*domain.CurrentUser)
	return user
}

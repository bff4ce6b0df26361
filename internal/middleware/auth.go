package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Siddarth2230/qrlinks/internal/auth"
)

// Authenticator attaches the Bearer token's principal to the request
// context. Requests without a token pass through anonymously.
type Authenticator struct {
	tokens *auth.TokenManager
}

func NewAuthenticator(tokens *auth.TokenManager) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || a.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.tokens.Parse(token)
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("rejected bearer token")
			writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), principal)))
	})
}

// RequireRole rejects anonymous requests with 401 and principals holding
// a different role with 403.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.FromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Authentication required.")
				return
			}
			if principal.Role != role {
				writeJSONError(w, http.StatusForbidden, "Insufficient permissions.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

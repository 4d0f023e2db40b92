package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/server/access"
	"github.com/dmitrijs2005/mitrasign/internal/server/auth"
)

type callerKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		caller, err := auth.ParseToken(token, s.SecretKey)
		if errors.Is(err, common.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, "token_expired")
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerFromContext returns the zero Caller for unauthenticated requests.
func callerFromContext(ctx context.Context) access.Caller {
	c, _ := ctx.Value(callerKey{}).(access.Caller)
	return c
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

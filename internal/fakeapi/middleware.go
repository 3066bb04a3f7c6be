package fakeapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/session"
)

type callerContextKey struct{}

type caller struct {
	userID int64
	token  string
}

func callerFrom(ctx context.Context) caller {
	c, _ := ctx.Value(callerContextKey{}).(caller)
	return c
}

// requireToken admits requests carrying a valid, unrevoked bearer token of a known user.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthenticated(w)
			return
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			unauthenticated(w)
			return
		}
		id, err := strconv.ParseInt(claims.UID, 10, 64)
		if err != nil {
			unauthenticated(w)
			return
		}

		s.mu.RLock()
		_, revoked := s.revoked[token]
		_, known := s.accounts[id]
		s.mu.RUnlock()
		if revoked || !known {
			unauthenticated(w)
			return
		}

		ctx := context.WithValue(r.Context(), callerContextKey{}, caller{userID: id, token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-ID"),
			"duration", time.Since(start),
		)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	return token, token != ""
}

func unauthenticated(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Unauthenticated.", session.FieldErrors{"api_token": {"Invalid token."}})
}

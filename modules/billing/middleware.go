package billing

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/logger"
)

// authenticate loads the caller's account and stores the entitlement
// snapshot in the request context. The snapshot is built once per request.
func (m *Module) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(UserIDHeader)))
		if err != nil || userID == uuid.Nil {
			writeError(w, r, m.log, errUnauthorized)
			return
		}

		acc, err := m.opts.Accounts.Account(r.Context(), userID)
		if err != nil {
			writeError(w, r, m.log, err)
			return
		}

		ac := m.opts.Resolver.Authenticate(acc, m.now())
		next.ServeHTTP(w, r.WithContext(entitlement.WithAuthenticated(r.Context(), ac)))
	})
}

// requireAdmin checks the bearer token against the configured admin token.
func (m *Module) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(m.opts.AdminToken)) != 1 {
			writeError(w, r, m.log, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Module) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		m.log.DebugContext(r.Context(), "http request",
			logger.RequestID(middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func authenticated(r *http.Request) entitlement.AuthenticatedContext {
	ac, ok := entitlement.FromContext(r.Context())
	if !ok {
		// routes using this are always behind authenticate
		panic("billing module: missing authenticated context")
	}
	return ac
}

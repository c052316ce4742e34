package service

import (
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/arashthr/markcentral/internal/auth"
	"github.com/arashthr/markcentral/internal/auth/context/loggercontext"
	"github.com/arashthr/markcentral/internal/auth/context/usercontext"
	"github.com/arashthr/markcentral/internal/logging"
)

type UserMiddleware struct {
	SessionService *auth.SessionService
}

func (umw UserMiddleware) SetUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ReadCookie(r, auth.CookieSession)
		if err != nil || token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := umw.SessionService.User(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		ctx = usercontext.WithUser(ctx, user)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

func (umw UserMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := usercontext.User(r.Context())
		if user == nil {
			logging.Logger.Infow("unauthorized request", "remoteAddr", r.RemoteAddr, "path", r.URL.Path, "method", r.Method)
			writeErrorResponse(w, http.StatusUnauthorized, ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "Sign in required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExposeCSRFToken puts the per-request token on every response so JSON
// clients can echo it back in the X-CSRF-Token header on mutating requests.
// It must run inside csrf.Protect.
func ExposeCSRFToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CSRF-Token", csrf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// WithLogger puts the request-scoped logger into the context.
func WithLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := loggercontext.WithLogger(r.Context(), logging.Logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/view"
)

type ctxKey struct{}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the authenticated account, or nil.
func FromContext(ctx context.Context) *entity.User {
	u, _ := ctx.Value(ctxKey{}).(*entity.User)
	return u
}

// Middleware resolves the session cookie on every request. Requests without a
// usable session pass through unauthenticated.
func (m *Manager) Middleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := m.Load(r)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					logger.Debugw("session rejected", "err", err, "path", r.URL.Path)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireUser redirects anonymous requests to /login.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

// RequireAdmin rejects anyone without the admin role.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).IsAdmin() {
			view.Text(w, http.StatusForbidden, view.MsgAccessDenied)
			return
		}
		next(w, r)
	}
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bitesnap/internal/auth"
	"github.com/dukerupert/bitesnap/internal/model"
	"github.com/dukerupert/bitesnap/internal/store"
)

// SessionCookieName is the cookie holding the local session id. The backend
// token itself never reaches the browser.
const SessionCookieName = "bitesnap_session"

// UserFetcher confirms a token by fetching its account, satisfied by
// *api.Client.
type UserFetcher interface {
	CurrentUser(ctx context.Context, token string) (model.User, error)
}

// RequireAuth gates protected routes. Requests without a confirmed session
// are redirected to the sign-in page. A session whose token has not been
// verified yet is confirmed once against the backend and the user cached; a
// failed confirmation destroys the session, the one automatic corrective
// action in the app.
// HTMX-aware: returns HX-Redirect header instead of 303 redirect for HTMX requests.
func RequireAuth(sessions *store.SessionStore, users UserFetcher, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := resolveSession(w, r, sessions, users, logger)
			if !ok || ac.User == nil {
				redirectToSignIn(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func redirectToSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/signin")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

// OptionalAuth resolves the session the same way but lets anonymous requests
// through, so public pages can still render per-user state (favorites) for
// signed-in visitors.
func OptionalAuth(sessions *store.SessionStore, users UserFetcher, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := resolveSession(w, r, sessions, users, logger)
			if ok {
				r = r.WithContext(auth.WithAuth(r.Context(), ac))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveSession maps the cookie to a confirmed session. It returns false
// when the request is anonymous or the session turned out to be dead.
func resolveSession(w http.ResponseWriter, r *http.Request, sessions *store.SessionStore, users UserFetcher, logger *slog.Logger) (auth.AuthContext, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return auth.AuthContext{}, false
	}

	sess, err := sessions.GetByID(cookie.Value)
	if err != nil {
		logger.Error("session lookup", "error", err)
		return auth.AuthContext{}, false
	}
	if sess == nil {
		ClearSessionCookie(w)
		return auth.AuthContext{}, false
	}

	if sess.User == nil {
		// Token present but unverified this session: confirm it by
		// fetching the account once.
		u, err := users.CurrentUser(r.Context(), sess.Token)
		if err != nil {
			logger.Warn("token check failed, signing out", "error", err)
			if derr := sessions.Delete(sess.ID); derr != nil {
				logger.Error("delete dead session", "error", derr)
			}
			ClearSessionCookie(w)
			return auth.AuthContext{}, false
		}
		sess.User = &u
		if err := sessions.UpdateUser(sess.ID, &u); err != nil {
			logger.Error("cache user", "error", err)
		}
	}

	return auth.AuthContext{
		SessionID: sess.ID,
		Token:     sess.Token,
		User:      sess.User,
	}, true
}

// SetSessionCookie installs the session id cookie.
func SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 60 * 60,
	})
}

// ClearSessionCookie expires the session id cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey    = "is_authenticated"
	userIDKey    = "user_id"
	userNameKey  = "user_name"
	userEmailKey = "user_email"
	userRoleKey  = "user_role"
)

// SessionUser is what we cache in the session and inject into r.Context().
type SessionUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// UserFetcher loads fresh user data for a uid on each request. Returning
// nil means the user no longer exists, is unapproved, or is revoked; the
// request proceeds unauthenticated.
type UserFetcher interface {
	FetchUser(ctx context.Context, uid string) *SessionUser
}

// SessionManager owns the cookie store and the auth middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	log     *zap.Logger
	fetcher UserFetcher
}

// NewSessionManager builds a cookie-backed session manager. In production
// (secure=true) cookies are Secure with SameSite=None; in dev they are Lax
// so plain http://localhost works.
func NewSessionManager(sessionKey, name, domain string, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher makes LoadSessionUser re-fetch the user on each request so
// role changes, approval flips, and revocations take effect immediately.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// CurrentUser returns the user in context and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects a user directly into the request context, bypassing
// the session store. For handler tests only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser injects the user into context if they are signed in.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sm.store.Get(r, sm.name)

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			uid := getString(sess, userIDKey)
			var u *SessionUser
			if sm.fetcher != nil {
				u = sm.fetcher.FetchUser(r.Context(), uid)
			} else {
				u = &SessionUser{
					ID:    uid,
					Name:  getString(sess, userNameKey),
					Email: getString(sess, userEmailKey),
					Role:  getString(sess, userRoleKey),
				}
			}
			if u != nil {
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SignIn writes the user into the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u *SessionUser) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userNameKey] = u.Name
	sess.Values[userEmailKey] = u.Email
	sess.Values[userRoleKey] = u.Role
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// RequireSignedIn ensures there is a user in context (set by
// LoadSessionUser). If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		ret := url.QueryEscape(currentURI(r))

		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", "/login?return="+ret)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if wantsHTML(r) {
			http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
			return
		}

		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

// RequireRole ensures the signed-in user has one of the allowed roles.
// Unauthorized requests get 401 semantics; wrong-role requests get 403.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)

			if !ok {
				ret := url.QueryEscape(currentURI(r))

				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", "/login?return="+ret)
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				if wantsHTML(r) {
					http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if _, has := set[strings.ToLower(u.Role)]; !has {
				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", "/forbidden")
					w.WriteHeader(http.StatusForbidden)
					return
				}
				if wantsHTML(r) {
					http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

/* ------------------------------- helpers -------------------------------- */

func getString(s *sessions.Session, key string) string {
	v, _ := s.Values[key].(string)
	return v
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	uri := r.URL.RequestURI()
	if uri == "" {
		return "/"
	}
	return uri
}

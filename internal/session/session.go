package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the per-browser state every handler receives through the
// request context.
type Session struct {
	ID            string
	Authenticated bool
	// PendingImage is a previewed upload kept for the next submit, when
	// image persistence is enabled.
	PendingImage string
}

// Claims is the signed cookie payload.
type Claims struct {
	Authenticated bool   `json:"auth"`
	PendingImage  string `json:"pending_image,omitempty"`
	jwt.RegisteredClaims
}

type contextKey string

const sessionContextKey contextKey = "session"

// Manager reads and writes the session cookie.
type Manager struct {
	secret     []byte
	cookieName string
	secure     bool
	logger     *slog.Logger
}

// NewManager builds a cookie manager. An empty secret is replaced by a random
// one, which invalidates sessions on restart.
func NewManager(secret, cookieName string, secure bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		logger.Warn("session.secret.generated", "hint", "set SESSION_SECRET to keep sessions across restarts")
	}
	if cookieName == "" {
		cookieName = "sheetx_session"
	}
	return &Manager{secret: []byte(secret), cookieName: cookieName, secure: secure, logger: logger}
}

// Load returns the session carried by r, or a fresh anonymous one.
func (m *Manager) Load(r *http.Request) *Session {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return newSession()
	}
	claims, err := m.parse(c.Value)
	if err != nil {
		m.logger.Warn("session.cookie.invalid", "error", err)
		return newSession()
	}
	return &Session{
		ID:            claims.ID,
		Authenticated: claims.Authenticated,
		PendingImage:  claims.PendingImage,
	}
}

// Save signs s into the response cookie.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	claims := Claims{
		Authenticated: s.Authenticated,
		PendingImage:  s.PendingImage,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       s.ID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) parse(value string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(value, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.ID == "" {
		return nil, errors.New("session id missing")
	}
	return claims, nil
}

// Middleware loads the session into the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Load(r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireAuth redirects unauthenticated requests to loginPath.
func RequireAuth(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).Authenticated {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the request's session; an anonymous one when absent.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}

func newSession() *Session {
	return &Session{ID: uuid.NewString()}
}

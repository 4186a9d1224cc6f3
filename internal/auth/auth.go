// internal/auth/auth.go
//
// Account helpers shared by the HTTP layer:
//   - bcrypt password hashing and signup validation.
//   - HS256 JWT signing/parsing with "id" and "username" claims.
//   - Auth cookie handling and bearer-or-cookie token extraction.
//   - Request context plumbing for the authenticated user.

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrBadSignup    = errors.New("invalid signup")
)

// User is the identity carried by a valid token.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Config controls token lifetime and cookie attributes.
type Config struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool // production: Secure + SameSite=None
}

// Manager signs and verifies tokens and writes auth cookies.
type Manager struct {
	cfg Config
}

// NewManager returns a Manager; empty fields fall back to development defaults.
func NewManager(cfg Config) *Manager {
	if cfg.Secret == "" {
		cfg.Secret = "dev_secret_change_me"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "mines_token"
	}
	return &Manager{cfg: cfg}
}

// Sign creates a token for the user and returns it with its expiry.
func (m *Manager) Sign(id, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.cfg.TTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(m.cfg.Secret))
	return ss, exp, err
}

// Parse verifies a token and extracts its user.
func (m *Manager) Parse(token string) (*User, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return &User{ID: id, Username: username}, nil
}

// TokenFrom extracts a bearer token from the Authorization header or the auth cookie.
func (m *Manager) TokenFrom(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(m.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetCookie writes the auth token cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	c := m.cookie(token)
	c.Expires = exp
	http.SetCookie(w, c)
}

// ClearCookie deletes the auth token cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	c := m.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// SameSite returns the cookie mode for this deployment.
func (m *Manager) SameSite() http.SameSite {
	if m.cfg.Secure {
		return http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	return http.SameSiteLaxMode
}

// Secure reports whether cookies are marked Secure.
func (m *Manager) Secure() bool { return m.cfg.Secure }

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: m.SameSite(),
	}
}

// ------------------------------ passwords ----------------------------------

// HashPassword returns a bcrypt hash (default cost).
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword is a bcrypt verifier.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NormalizeUsername trims whitespace.
func NormalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// ValidateSignup enforces basic username/password rules.
func ValidateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return fmt.Errorf("%w: username must be 3-24 chars", ErrBadSignup)
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: username: letters, numbers, underscore only", ErrBadSignup)
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return fmt.Errorf("%w: password must be 8-100 chars", ErrBadSignup)
	}
	return nil
}

// GenID creates a 22-char URL-safe, crypto-random identifier (no padding).
func GenID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ------------------------------- context -----------------------------------

type ctxUserKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

// FromContext returns the authenticated user, or nil for guests.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxUserKey{}).(*User)
	return u
}

// Package auth issues and parses the signed session cookie. A session carries
// the employee's identity, access level, and tenant; handlers read all three
// from the request context, never from shared state.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type ctxKey string

const (
	sessionCookieName = "session"
	sessionCtxKey     = ctxKey("session")
)

// Session identifies the authenticated employee and the tenant every storage
// call must be scoped to.
type Session struct {
	EmployeeID  uint
	TenantID    string
	AccessLevel string
}

func (s Session) IsAdmin() bool { return s.AccessLevel == "admin" }

// Verifier is an optional callback to validate that a session's employee
// still exists under that tenant. Set during app bootstrap via SetVerifier.
type Verifier func(ctx context.Context, s Session) bool

var verifier Verifier

// SetVerifier configures the global verifier used by RequireAuth.
func SetVerifier(v Verifier) { verifier = v }

// Secret returns SESSION_SECRET or a default dev value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

func payload(s Session) string {
	return strconv.FormatUint(uint64(s.EmployeeID), 10) + "|" + s.TenantID + "|" + s.AccessLevel
}

func sign(msg string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(msg))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie for the employee.
func CreateSession(w http.ResponseWriter, s Session) {
	msg := payload(s)
	value := base64.RawURLEncoding.EncodeToString([]byte(msg)) + "." + sign(msg)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(14 * 24 * time.Hour),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie signature and returns the session.
func ParseSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return Session{}, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return Session{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Session{}, false
	}
	msg := string(raw)
	if !hmac.Equal([]byte(parts[1]), []byte(sign(msg))) {
		return Session{}, false
	}
	fields := strings.Split(msg, "|")
	if len(fields) != 3 {
		return Session{}, false
	}
	id64, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil || fields[1] == "" {
		return Session{}, false
	}
	return Session{EmployeeID: uint(id64), TenantID: fields[1], AccessLevel: fields[2]}, true
}

// WithSession stores the session in the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// FromContext extracts the session.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(Session)
	return s, ok
}

// Middleware attaches the session to the request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := ParseSession(r); ok {
			r = r.WithContext(WithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid session with 401 JSON.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		if !ok {
			unauthorized(w)
			return
		}
		if verifier != nil && !verifier(r.Context(), s) {
			// session refers to a removed employee: clear and reject
			ClearSession(w)
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin layers the admin check on top of RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, _ := FromContext(r.Context()); !s.IsAdmin() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":"admin_only"}`)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprint(w, `{"error":"unauthorized"}`)
}

// Package session turns ambient request state (cookies, bearer tokens)
// into an explicit Context that gets passed to whatever needs identity.
// Nothing below this package reads cookies or globals on its own.
package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	sessionCookieName  = "sid"
	identityCookieName = "alumni_token"
)

// Context is the caller's identity for one request. Auth itself lives
// in the external auth service, we only consume the token it minted.
type Context struct {
	Id            string
	Role          string
	Name          string
	Email         string
	Authenticated bool
}

func Anonymous() *Context {
	return &Context{
		Id:   uuid.New().String(),
		Role: "anonymous",
	}
}

// Manager validates identity tokens and hands out session ids.
type Manager struct {
	secret []byte
}

func NewManager(secret []byte) *Manager {
	return &Manager{secret: secret}
}

// FromRequest never fails, a missing or broken token just means an
// anonymous context. The bool reports whether a new session started.
func (m *Manager) FromRequest(w http.ResponseWriter, r *http.Request) (*Context, bool) {
	ctx := &Context{Role: "anonymous"}

	isNew := false
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		ctx.Id = c.Value
	} else {
		ctx.Id = uuid.New().String()
		isNew = true
		setSessionCookie(w, r, ctx.Id)
	}

	if token := m.identityToken(r); token != "" {
		m.applyClaims(ctx, token)
	}
	return ctx, isNew
}

func (m *Manager) identityToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(identityCookieName); err == nil {
		return c.Value
	}
	return ""
}

func (m *Manager) applyClaims(ctx *Context, tokenString string) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		ctx.Role = role
	}
	if name, ok := claims["name"].(string); ok {
		ctx.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		ctx.Email = email
	}
	ctx.Authenticated = true
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Domain:   strings.TrimPrefix(r.Host, "."),
		SameSite: http.SameSiteNoneMode,
		HttpOnly: true,
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		Path:     "/",
	})
}

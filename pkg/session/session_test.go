package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSessionGetsCookie(t *testing.T) {
	m := NewManager([]byte("secret"))
	r := httptest.NewRequest(http.MethodGet, "http://directory.test/api/search", nil)
	w := httptest.NewRecorder()

	ctx, isNew := m.FromRequest(w, r)
	if !isNew {
		t.Error("first visit should start a session")
	}
	if ctx.Id == "" || ctx.Authenticated || ctx.Role != "anonymous" {
		t.Errorf("unexpected context: %+v", ctx)
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" && c.Value == ctx.Id {
			found = true
		}
	}
	if !found {
		t.Error("session cookie not issued")
	}
}

func TestExistingSessionReused(t *testing.T) {
	m := NewManager([]byte("secret"))
	r := httptest.NewRequest(http.MethodGet, "http://directory.test/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "existing-id"})

	ctx, isNew := m.FromRequest(httptest.NewRecorder(), r)
	if isNew || ctx.Id != "existing-id" {
		t.Errorf("got isNew=%v id=%q", isNew, ctx.Id)
	}
}

func TestIdentityTokenApplied(t *testing.T) {
	secret := []byte("secret")
	m := NewManager(secret)
	token := signToken(t, secret, jwt.MapClaims{
		"role":  "alumni",
		"name":  "Anna Svensson",
		"email": "anna@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	r := httptest.NewRequest(http.MethodGet, "http://directory.test/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	ctx, _ := m.FromRequest(httptest.NewRecorder(), r)

	if !ctx.Authenticated || ctx.Role != "alumni" || ctx.Name != "Anna Svensson" {
		t.Errorf("claims not applied: %+v", ctx)
	}
}

func TestBadTokenStaysAnonymous(t *testing.T) {
	m := NewManager([]byte("secret"))
	other := signToken(t, []byte("wrong-secret"), jwt.MapClaims{"role": "admin"})

	for _, token := range []string{"garbage", other} {
		r := httptest.NewRequest(http.MethodGet, "http://directory.test/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		ctx, _ := m.FromRequest(httptest.NewRecorder(), r)
		if ctx.Authenticated || ctx.Role != "anonymous" {
			t.Errorf("token %q should not authenticate: %+v", token, ctx)
		}
	}
}

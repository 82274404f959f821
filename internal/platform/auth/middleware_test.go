package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func runMiddleware(mw echo.MiddlewareFunc, authHeader string) (int, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured echo.Context
	handler := mw(func(c echo.Context) error {
		captured = c
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he.Code, captured
		}
		return http.StatusInternalServerError, captured
	}
	return rec.Code, captured
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"doctor"},
	}
	token := signToken(t, claims, testKey)

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	code, c := runMiddleware(mw, "Bearer "+token)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	ctx := c.Request().Context()
	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Errorf("user id = %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "doctor" {
		t.Errorf("roles = %v", roles)
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})

	if code, _ := runMiddleware(mw, ""); code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", code)
	}
	if code, _ := runMiddleware(mw, "Basic abc"); code != http.StatusUnauthorized {
		t.Errorf("wrong scheme: status = %d, want 401", code)
	}

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	wrongKey := signToken(t, claims, []byte("other-key"))
	if code, _ := runMiddleware(mw, "Bearer "+wrongKey); code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", code)
	}

	expired := signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}, testKey)
	if code, _ := runMiddleware(mw, "Bearer "+expired); code != http.StatusUnauthorized {
		t.Errorf("expired: status = %d, want 401", code)
	}
}

func TestJWTMiddlewareIssuerCheck(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey, Issuer: "medsched"})

	good := signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "medsched",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, testKey)
	if code, _ := runMiddleware(mw, "Bearer "+good); code != http.StatusOK {
		t.Errorf("matching issuer: status = %d, want 200", code)
	}

	bad := signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, testKey)
	if code, _ := runMiddleware(mw, "Bearer "+bad); code != http.StatusUnauthorized {
		t.Errorf("wrong issuer: status = %d, want 401", code)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	code, c := runMiddleware(DevAuthMiddleware(), "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	ctx := c.Request().Context()
	if UserIDFromContext(ctx) != "dev-user" {
		t.Errorf("user id = %q", UserIDFromContext(ctx))
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("roles = %v", roles)
	}
}

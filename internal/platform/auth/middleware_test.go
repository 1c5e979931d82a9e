package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func authedServer(issuer *TokenIssuer, extra ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(issuer, DefaultSkipper))
	handler := func(c echo.Context) error {
		id, _ := UserIDFromContext(c.Request().Context())
		return c.JSON(http.StatusOK, map[string]string{
			"user_id": id.String(),
			"role":    RoleFromContext(c.Request().Context()),
		})
	}
	g := e.Group("/api/v1")
	g.GET("/me", handler)
	g.GET("/doctor-only", handler, append(extra, RequireRole(RoleDoctor))...)
	e.POST("/api/v1/auth/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return e
}

func doRequest(e *echo.Echo, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewarePopulatesIdentity(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	e := authedServer(issuer)

	userID := uuid.New()
	token, err := issuer.Issue(userID, RolePatient)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rec := doRequest(e, http.MethodGet, "/api/v1/me", "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{userID.String(), RolePatient} {
		if !strings.Contains(body, want) {
			t.Errorf("response missing %q: %s", want, body)
		}
	}
}

func TestMiddlewareRejectsBadHeaders(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	e := authedServer(issuer)

	cases := []string{
		"",
		"Bearer",
		"Basic dXNlcjpwYXNz",
		"Bearer not-a-token",
	}
	for _, authz := range cases {
		if rec := doRequest(e, http.MethodGet, "/api/v1/me", authz); rec.Code != http.StatusUnauthorized {
			t.Errorf("authorization %q: expected 401, got %d", authz, rec.Code)
		}
	}
}

func TestMiddlewareSkipsPublicEndpoints(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	e := authedServer(issuer)

	if rec := doRequest(e, http.MethodPost, "/api/v1/auth/login", ""); rec.Code != http.StatusOK {
		t.Errorf("login must be reachable without a token, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	e := authedServer(issuer)

	cases := []struct {
		role string
		want int
	}{
		{RoleDoctor, http.StatusOK},
		{RolePatient, http.StatusForbidden},
		{RoleAdmin, http.StatusOK}, // admins pass every role check
	}
	for _, tc := range cases {
		token, err := issuer.Issue(uuid.New(), tc.role)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if rec := doRequest(e, http.MethodGet, "/api/v1/doctor-only", "Bearer "+token); rec.Code != tc.want {
			t.Errorf("role %s: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
	}
}

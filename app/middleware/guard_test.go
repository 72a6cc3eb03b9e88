package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/labstack/echo/v4"
)

func userClaims(role string) *service.SessionClaims {
	return &service.SessionClaims{UserID: 1, Email: "a@b.co", Role: role}
}

func TestDecideRoute(t *testing.T) {
	tokenErr := errors.New("bad token")

	tests := []struct {
		name       string
		path       string
		claims     *service.SessionClaims
		tokenErr   error
		wantAction middleware.GuardAction
		wantTarget string
	}{
		{
			name:       "auth page with session goes to dashboard",
			path:       "/auth/signin",
			claims:     userClaims(entity.RoleUser),
			wantAction: middleware.GuardRedirect,
			wantTarget: "/dashboard",
		},
		{
			name:       "auth page without session passes",
			path:       "/auth/signin",
			wantAction: middleware.GuardPass,
		},
		{
			name:       "dashboard without session goes to signin",
			path:       "/dashboard",
			wantAction: middleware.GuardRedirect,
			wantTarget: "/auth/signin",
		},
		{
			name:       "dashboard with session passes",
			path:       "/dashboard",
			claims:     userClaims(entity.RoleUser),
			wantAction: middleware.GuardPass,
		},
		{
			name:       "settings without session goes to signin",
			path:       "/settings/profile",
			wantAction: middleware.GuardRedirect,
			wantTarget: "/auth/signin",
		},
		{
			name:       "protected api without session goes to signin",
			path:       "/api/protected/data",
			wantAction: middleware.GuardRedirect,
			wantTarget: "/auth/signin",
		},
		{
			name:       "admin page without session goes to signin",
			path:       "/admin",
			wantAction: middleware.GuardRedirect,
			wantTarget: "/auth/signin",
		},
		{
			name:       "admin page as user goes to dashboard",
			path:       "/admin/users",
			claims:     userClaims(entity.RoleUser),
			wantAction: middleware.GuardRedirect,
			wantTarget: "/dashboard",
		},
		{
			name:       "admin page as admin passes",
			path:       "/admin/users",
			claims:     userClaims(entity.RoleAdmin),
			wantAction: middleware.GuardPass,
		},
		{
			name:       "admin api as user is forbidden",
			path:       "/api/admin/users",
			claims:     userClaims(entity.RoleUser),
			wantAction: middleware.GuardForbid,
		},
		{
			name:       "admin api without session is forbidden",
			path:       "/api/admin/users",
			wantAction: middleware.GuardForbid,
		},
		{
			name:       "admin api as admin passes",
			path:       "/api/admin/users",
			claims:     userClaims(entity.RoleAdmin),
			wantAction: middleware.GuardPass,
		},
		{
			name:       "public path passes",
			path:       "/",
			wantAction: middleware.GuardPass,
		},
		{
			name:       "broken token fails closed on public path",
			path:       "/",
			tokenErr:   tokenErr,
			wantAction: middleware.GuardRedirect,
			wantTarget: "/error",
		},
		{
			name:       "broken token fails closed on admin api",
			path:       "/api/admin/users",
			tokenErr:   tokenErr,
			wantAction: middleware.GuardRedirect,
			wantTarget: "/error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := middleware.DecideRoute(tt.path, tt.claims, tt.tokenErr)
			if decision.Action != tt.wantAction {
				t.Fatalf("Action = %v, want %v", decision.Action, tt.wantAction)
			}
			if decision.Target != tt.wantTarget {
				t.Fatalf("Target = %q, want %q", decision.Target, tt.wantTarget)
			}
		})
	}
}

func guardRequest(t *testing.T, m *middleware.AuthMiddleware, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := m.RouteGuard(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	return rec
}

func TestRouteGuard(t *testing.T) {
	issuer := service.NewSessionIssuer("test-secret", time.Hour)
	m := middleware.NewAuthMiddleware(issuer)

	token, err := issuer.Issue(&entity.User{ID: 1, Email: "a@b.co", Role: entity.RoleUser})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	rec := guardRequest(t, m, http.MethodGet, "/dashboard", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = guardRequest(t, m, http.MethodGet, "/dashboard", "")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/auth/signin" {
		t.Fatalf("expected redirect to signin, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = guardRequest(t, m, http.MethodGet, "/dashboard", "garbage-token")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/error" {
		t.Fatalf("expected redirect to error page, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = guardRequest(t, m, http.MethodGet, "/api/admin/users", token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	// Non-GET requests are left to the handlers' own auth.
	rec = guardRequest(t, m, http.MethodPost, "/auth/signin", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected POST to pass through, got %d", rec.Code)
	}
}

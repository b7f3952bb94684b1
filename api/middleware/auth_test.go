package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "storefront", ExpirationMinutes: 15}

func mintToken(t *testing.T, role enums.StaffRole, now time.Time) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWT, now, pkgAuth.AccessTokenPayload{Subject: "staff-1", Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func staffHandler(t *testing.T, roles ...enums.StaffRole) http.Handler {
	t.Helper()
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if StaffIDFromContext(r.Context()) != "staff-1" {
			t.Fatalf("expected staff id in context")
		}
		w.WriteHeader(http.StatusOK)
	})
	return StaffAuth(testJWT, nil)(RequireRole(nil, roles...)(final))
}

func TestStaffAuthAcceptsValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.StaffRoleAdmin, time.Now()))
	rec := httptest.NewRecorder()

	staffHandler(t, enums.StaffRoleAdmin).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStaffAuthRejectsMissingOrExpiredToken(t *testing.T) {
	cases := map[string]string{
		"missing": "",
		"garbage": "Bearer not-a-jwt",
		"expired": "Bearer " + mintToken(t, enums.StaffRoleAdmin, time.Now().Add(-time.Hour)),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		staffHandler(t, enums.StaffRoleAdmin).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/promos", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.StaffRoleFulfillment, time.Now()))
	rec := httptest.NewRecorder()

	staffHandler(t, enums.StaffRoleAdmin).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRoleAcceptsAnyListedRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/x/status", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.StaffRoleFulfillment, time.Now()))
	rec := httptest.NewRecorder()

	staffHandler(t, enums.StaffRoleAdmin, enums.StaffRoleFulfillment).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medivault/internal/platform/logger"
	"medivault/internal/ports/auth"
)

type stubVerifier struct {
	claims auth.Claims
	err    error
}

func (s stubVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if token != "good" {
		return auth.Claims{}, errors.New("bad token")
	}
	return s.claims, s.err
}

func claimsProbe(t *testing.T, got *auth.Claims, ok *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *ok = GetClaims(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthContext_DevHeaders(t *testing.T) {
	var got auth.Claims
	var ok bool
	h := AuthContext(nil)(claimsProbe(t, &got, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User-ID", "doc-1")
	req.Header.Set("X-Debug-Role", "doctor")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !ok || got.UserID != "doc-1" || got.Role != auth.RoleDoctor {
		t.Fatalf("expected dev claims, got ok=%v %+v", ok, got)
	}
}

func TestAuthContext_Verifier(t *testing.T) {
	var got auth.Claims
	var ok bool
	h := AuthContext(stubVerifier{claims: auth.Claims{UserID: "p-1", Role: auth.RolePatient}})(claimsProbe(t, &got, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got.UserID != "p-1" {
		t.Fatalf("expected verified claims, got ok=%v %+v", ok, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if ok {
		t.Fatalf("expected no claims for rejected token")
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(auth.RoleHospitalAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &auth.Claims{UserID: "d-1", Role: auth.RoleDoctor}, http.StatusForbidden},
		{"admin", &auth.Claims{UserID: "a-1", Role: auth.RoleHospitalAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), *tc.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRecover_Returns500(t *testing.T) {
	h := Recover(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

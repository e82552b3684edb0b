package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "barberdesk/pkg/errors"
	"barberdesk/pkg/logger"
	"barberdesk/pkg/session"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func testLogger() *logger.Logger {
	return logger.Discard()
}

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func adminClaims(exp time.Time) *Claims {
	return &Claims{
		ID:       7,
		Name:     "Carlos",
		Email:    "carlos@barbearia.com",
		UserType: &UserType{ID: 1, Name: AdminUserType},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "carlos@barbearia.com",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestAuthenticate(t *testing.T) {
	auth := NewAuthenticator(testSecret, testLogger())
	future := time.Now().Add(time.Hour)

	client := adminClaims(future)
	client.UserType = &UserType{ID: 2, Name: "Cliente"}

	noSubject := adminClaims(future)
	noSubject.Subject = ""
	noSubject.Email = ""

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", apperrors.CodeUnauthorized},
		{"not bearer", "Basic abc", apperrors.CodeUnauthorized},
		{"garbage token", "Bearer not-a-jwt", apperrors.CodeUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", adminClaims(future)), apperrors.CodeUnauthorized},
		{"wrong algorithm", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, adminClaims(future)), apperrors.CodeUnauthorized},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, adminClaims(time.Now().Add(-time.Hour))), apperrors.CodeUnauthorized},
		{"no subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, noSubject), apperrors.CodeUnauthorized},
		{"not admin", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, client), apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Authenticate(tt.header)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestAuthenticate_BuildsSession(t *testing.T) {
	auth := NewAuthenticator(testSecret, testLogger())
	token := signToken(t, jwt.SigningMethodHS256, testSecret, adminClaims(time.Now().Add(time.Hour)))

	s, err := auth.Authenticate("Bearer " + token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Subject != "carlos@barbearia.com" || !s.IsAdmin || s.Token != token || s.Name != "Carlos" {
		t.Errorf("unexpected session %+v", s)
	}
	if s.ExpiresAt.IsZero() {
		t.Errorf("expected expiry to be carried")
	}
}

func TestAuthenticate_FallsBackToEmailSubject(t *testing.T) {
	auth := NewAuthenticator(testSecret, testLogger())
	claims := adminClaims(time.Now().Add(time.Hour))
	claims.Subject = ""

	s, err := auth.Authenticate("Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, claims))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Subject != "carlos@barbearia.com" {
		t.Errorf("Subject = %q", s.Subject)
	}
}

func TestRequireAdmin(t *testing.T) {
	auth := NewAuthenticator(testSecret, testLogger())
	var seen *session.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = session.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := RequireAdmin(auth)(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/agenda/slots", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if seen != nil {
		t.Fatal("next handler must not run without a token")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agenda/slots", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, adminClaims(time.Now().Add(time.Hour))))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.Subject != "carlos@barbearia.com" {
		t.Fatalf("expected session in context, got %+v", seen)
	}
}

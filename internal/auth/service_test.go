package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newService(t *testing.T, now *time.Time) *Service {
	t.Helper()
	s, err := NewService("test-secret", WithClock(func() time.Time { return *now }))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTokenRoundTrip(t *testing.T) {
	now := epoch
	s := newService(t, &now)

	token, err := s.IssueToken("user_1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if got != "user_1" {
		t.Errorf("subject = %q", got)
	}

	now = epoch.Add(2 * time.Hour)
	if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: %v", err)
	}
}

func TestRejectsForeignTokens(t *testing.T) {
	now := epoch
	s := newService(t, &now)

	other, _ := NewService("other-secret", WithClock(func() time.Time { return now }))
	foreign, _ := other.IssueToken("user_1", time.Hour)
	if _, err := s.ValidateToken(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret: %v", err)
	}

	claims := jwt.RegisteredClaims{Subject: "user_1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := s.ValidateToken(none); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unsigned token: %v", err)
	}

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user_1"}).SignedString([]byte("test-secret"))
	if _, err := s.ValidateToken(noExp); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token without expiry: %v", err)
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(""); !errors.Is(err, ErrNoSecret) {
		t.Errorf("NewService: %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	now := epoch
	s := newService(t, &now)
	token, _ := s.IssueToken("user_42", time.Hour)

	var seen string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + token, http.StatusOK, "user_42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if seen != tt.user {
				t.Errorf("user = %q, want %q", seen, tt.user)
			}
		})
	}
}

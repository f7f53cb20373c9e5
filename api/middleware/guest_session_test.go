package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func captureGuest(dst *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = GuestSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuestSessionIssuesCookie(t *testing.T) {
	var guest string
	handler := GuestSession(time.Hour, false, nil)(captureGuest(&guest))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if _, err := uuid.Parse(guest); err != nil {
		t.Fatalf("expected issued session id, got %q", guest)
	}
	cookies := resp.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != GuestSessionCookie || cookies[0].Value != guest {
		t.Fatalf("expected guest cookie for %s, got %+v", guest, cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("expected http-only cookie")
	}
}

func TestGuestSessionReusesCookie(t *testing.T) {
	var guest string
	handler := GuestSession(time.Hour, false, nil)(captureGuest(&guest))
	existing := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: GuestSessionCookie, Value: existing})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if guest != existing {
		t.Fatalf("expected %s got %s", existing, guest)
	}
	if len(resp.Result().Cookies()) != 0 {
		t.Fatalf("expected no new cookie")
	}
}

func TestGuestSessionSkipsIssuingForUsers(t *testing.T) {
	var guest string
	handler := GuestSession(time.Hour, false, nil)(captureGuest(&guest))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req = req.WithContext(WithUserID(req.Context(), uuid.NewString()))
	req.AddCookie(&http.Cookie{Name: GuestSessionCookie, Value: "not-a-uuid"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if guest != "" {
		t.Fatalf("expected no guest session for a user, got %s", guest)
	}
	if len(resp.Result().Cookies()) != 0 {
		t.Fatalf("expected no cookie for a user")
	}
}

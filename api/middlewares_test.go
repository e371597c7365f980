package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAuth(t *testing.T) {
	app := newTestApplication(t)
	handler := composeRoutes(app)
	_, token := signupUser(t, handler, "Ivan", "ivan@x.com", "abcd123456")

	other := newTestApplication(t)
	other.config.jwtSecret = "a-different-secret"
	otherUser := &user{ID: 1}
	foreignToken, err := other.issueToken(otherUser)
	if err != nil {
		t.Fatalf("issue foreign token: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic " + token, http.StatusUnauthorized},
		{"malformed header", "Bearer", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"wrong signing secret", "Bearer " + foreignToken, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestRequireAuthRejectsDeletedUser(t *testing.T) {
	app := newTestApplication(t)
	handler := composeRoutes(app)
	u, token := signupUser(t, handler, "Ivan", "ivan@x.com", "abcd123456")

	err := app.store.deleteUser(&u)
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	w := doRequest(t, handler, http.MethodGet, "/users/me", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRateLimit(t *testing.T) {
	app := newTestApplication(t)
	app.config.limiter.enabled = true
	app.config.limiter.maxRequestPerSecond = 1
	app.config.limiter.burst = 2
	handler := composeRoutes(app)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := doRequest(t, handler, http.MethodGet, "/healthcheck", "", nil)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("requests within burst got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("request beyond burst got %d, want %d", codes[2], http.StatusTooManyRequests)
	}
}

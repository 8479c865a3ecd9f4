package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/notesync/internal/server/handlers"
	"github.com/iudanet/notesync/pkg/api"
)

func TestRateLimiter_Allow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	limiter := NewRateLimiter(2, time.Minute, clock)

	ok, _ := limiter.Allow("alice")
	assert.True(t, ok)
	ok, _ = limiter.Allow("alice")
	assert.True(t, ok)

	ok, retryAfter := limiter.Allow("alice")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retryAfter)

	// Другой ключ имеет своё окно
	ok, _ = limiter.Allow("bob")
	assert.True(t, ok)

	clock.Advance(40 * time.Second)
	ok, retryAfter = limiter.Allow("alice")
	assert.False(t, ok)
	assert.Equal(t, 20*time.Second, retryAfter)

	clock.Advance(20 * time.Second)
	ok, _ = limiter.Allow("alice")
	assert.True(t, ok)
}

func TestRateLimiter_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	limiter := NewRateLimiter(1, time.Minute, clock)

	limiter.Allow("alice")
	limiter.Allow("bob")
	assert.Equal(t, 2, limiter.Len())

	clock.Advance(3 * time.Minute)
	limiter.Allow("carol")
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimit(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	handler := RateLimit(discardLogger(), NewRateLimiter(1, time.Minute, clock))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	request := func(userID, remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/changes", nil)
		req.RemoteAddr = remoteAddr
		if userID != "" {
			req = req.WithContext(handlers.WithUserID(req.Context(), userID))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, request("alice", "10.0.0.1:1234").Code)

	w := request("alice", "10.0.0.2:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.ErrCodeRateLimited, resp.Error)

	// Без пользователя ключом служит IP
	assert.Equal(t, http.StatusOK, request("", "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, request("", "10.0.0.1:5678").Code)
	assert.Equal(t, http.StatusOK, request("bob", "10.0.0.1:1234").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "192.0.2.1:4000", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
		{
			name:    "forwarded list",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5,10.0.0.1"},
			remote:  "10.0.0.1:80",
			want:    "203.0.113.5",
		},
		{
			name:    "real ip",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			remote:  "10.0.0.1:80",
			want:    "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

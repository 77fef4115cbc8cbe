package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Authenticate(stubVerifier{"good": "user-1"}, logging.Discard()))
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		Respond(w, http.StatusOK, map[string]string{"user_id": PrincipalID(r)})
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			newRouter().ServeHTTP(rec, req)
			assert.Equal(t, c.want, rec.Code)
		})
	}
}

func TestAuthenticateStoresPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["user_id"])
}

func TestErrorHidesInternalDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	Error(rec, req, logging.Discard(), errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	Error(rec, req, logging.Discard(), apperr.New(apperr.Conflict, "DUPLICATE", "already there"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DUPLICATE", body.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterKeysOnHostNotPort(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for _, addr := range []string{"10.0.0.1:1111", "10.0.0.1:2222"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Len(t, rl.limiters, 1)
}

func TestRateLimiterCleanupDropsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.limiter("stale")
	rl.limiter("fresh")
	rl.limiters["stale"].seen = time.Now().Add(-time.Hour)

	rl.cleanup(10 * time.Minute)

	assert.NotContains(t, rl.limiters, "stale")
	assert.Contains(t, rl.limiters, "fresh")
}

func TestPageFromQuery(t *testing.T) {
	p := PageFromQuery(httptest.NewRequest(http.MethodGet, "/?page=3&size=500", nil))
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, 100, p.Size)
	assert.Equal(t, 200, p.Offset())

	p = PageFromQuery(httptest.NewRequest(http.MethodGet, "/?page=-1", nil))
	assert.Equal(t, Page{Number: 1, Size: 20}, p)
}

func TestParams(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()
	r.Get("/shops/{shop_id}", func(w http.ResponseWriter, r *http.Request) {
		got, err := URLUUID(r, "shop_id")
		if err != nil {
			Error(w, r, logging.Discard(), err)
			return
		}
		branch, err := QueryUUID(r, "branch_id")
		if err != nil {
			Error(w, r, logging.Discard(), err)
			return
		}
		Respond(w, http.StatusOK, map[string]interface{}{"shop": got, "branch": branch})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shops/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"branch":null`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shops/nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shops/"+id.String()+"?branch_id=bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?from=2024-03-01&to=2024-03-02T10:00:00Z&bad=yesterday", nil)

	from, err := QueryTime(r, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), from)

	to, err := QueryTime(r, "to")
	require.NoError(t, err)
	assert.Equal(t, 10, to.Hour())

	missing, err := QueryTime(r, "until")
	require.NoError(t, err)
	assert.True(t, missing.IsZero())

	_, err = QueryTime(r, "bad")
	assert.Error(t, err)
}

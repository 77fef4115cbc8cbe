package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/cache"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/config"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := &config.Config{
		StorageDriver:   config.StorageMemory,
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,
		CacheTTL:        time.Minute,
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
		TempDir:         t.TempDir(),
		TempFileMaxAge:  time.Hour,
		ReminderDays:    3,
		CronExpiry:      "0 1 * * *",
		CronReminder:    "0 9 * * *",
		CronTempCleanup: "@every 1h",
	}
	a, err := newApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterEndToEnd(t *testing.T) {
	h := testApp(t).router()

	rec := call(t, h, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"email": "owner@shop.test", "password": "password1", "first_name": "Ada", "last_name": "Banda",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "owner@shop.test", "password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)

	rec = call(t, h, http.MethodPost, "/api/v1/shops", login.AccessToken, map[string]string{"name": "Corner Store", "type": "GROCERY"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = call(t, h, http.MethodGet, "/api/v1/shops/"+created.ID+"/me/permissions", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "REPORT_VIEW")

	rec = call(t, h, http.MethodGet, "/api/v1/shops/"+created.ID+"/reports/sales", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/api/v1/plans", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRouterRejectsMissingToken(t *testing.T) {
	h := testApp(t).router()
	rec := call(t, h, http.MethodGet, "/api/v1/shops", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := testApp(t).router()
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/metrics", "", nil).Code)
}

func TestScheduledJobsRunOnEmptyStore(t *testing.T) {
	a := testApp(t)
	assert.Equal(t, []string{jobExpiry, jobReminder, jobTempCleanup}, a.scheduler.Names())
	for _, name := range a.scheduler.Names() {
		n, err := a.scheduler.Run(context.Background(), name)
		require.NoError(t, err, name)
		assert.Zero(t, n, name)
	}
}

type closeCountingCache struct {
	*cache.Memory
	closed int
}

func (c *closeCountingCache) Close() error {
	c.closed++
	return nil
}

func TestAppCloseReleasesCache(t *testing.T) {
	a := testApp(t)
	c := &closeCountingCache{Memory: cache.NewMemory()}
	a.cache = c

	a.Close()
	assert.Equal(t, 1, c.closed)
}

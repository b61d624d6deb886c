package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-queue-reservation/internal/config"
)

func TestCachedPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	body := []byte(`{"organizations":[]}`)

	payload, err := encodeCached(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodeCached(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, body, gotBody)
}

func TestDecodeCachedRejectsTruncatedPayload(t *testing.T) {
	_, _, _, ok := decodeCached([]byte{0, 0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodeCached([]byte{0, 0, 0, 200, 0, 0, 0, 99})
	assert.False(t, ok)
}

func TestCacheKeyVariesByQuery(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	e := echo.New()

	key := func(target string) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/org/queue")
		return cacheKey(cfg, c)
	}

	a := key("/v1/org/queue?date=2026-09-01")
	b := key("/v1/org/queue?date=2026-09-02")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, key("/v1/org/queue?date=2026-09-01"))
}

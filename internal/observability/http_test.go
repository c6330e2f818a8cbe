package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPFromRequestPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	req.Header.Set("X-Real-Ip", "10.0.0.9")
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))
}

func TestIPFromRequestUsesRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.9")
	assert.Equal(t, "10.0.0.9", IPFromRequest(req))
}

func TestIPFromRequestFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.5:4321"
	assert.Equal(t, "192.168.1.5", IPFromRequest(req))
	assert.Empty(t, TraceIDFromRequest(req))
}

func TestIdentifiersFallBackToQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/projects/p1?device_id=d1&request_id=r1", nil)
	assert.Equal(t, "d1", DeviceIDFromRequest(req))
	assert.Equal(t, "r1", RequestIDFromRequest(req))

	req.Header.Set("X-Device-Id", "d2")
	assert.Equal(t, "d2", DeviceIDFromRequest(req))
}

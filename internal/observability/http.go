package observability

import (
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Browsers cannot set headers on a websocket handshake, so the
// identification values also travel as query parameters.

// DeviceIDFromRequest returns the client device id from X-Device-Id or ?device_id=.
func DeviceIDFromRequest(r *http.Request) string {
	return headerOrQuery(r, "X-Device-Id", "device_id")
}

// RequestIDFromRequest returns the caller's request id from X-Request-Id or ?request_id=.
func RequestIDFromRequest(r *http.Request) string {
	return headerOrQuery(r, "X-Request-Id", "request_id")
}

// TraceIDFromRequest returns the active trace id of the request, if any.
func TraceIDFromRequest(r *http.Request) string {
	sc := trace.SpanContextFromContext(r.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// IPFromRequest returns the client address, trusting X-Forwarded-For then X-Real-Ip.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-Ip")); real != "" {
		return real
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func headerOrQuery(r *http.Request, header, param string) string {
	if v := r.Header.Get(header); v != "" {
		return v
	}
	return r.URL.Query().Get(param)
}

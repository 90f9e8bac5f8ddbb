package pkg

import (
	"net/http"
	"strings"
)

// ReadUserIP returns the requester address, preferring the reverse
// proxy headers over the raw remote address.
func ReadUserIP(r *http.Request) string {
	ipAddr := r.Header.Get("X-Real-Ip")
	if ipAddr == "" {
		ipAddr = r.Header.Get("X-Forwarded-For")
	}
	if ipAddr == "" {
		ipAddr = r.RemoteAddr
	}

	// strip the port, if present
	if i := strings.LastIndex(ipAddr, ":"); i > 0 && !strings.Contains(ipAddr[i:], "]") {
		ipAddr = ipAddr[:i]
	}

	return ipAddr
}

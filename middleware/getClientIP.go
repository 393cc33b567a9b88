package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientKey identifies the caller in access logs. Kiosks often share one
// salon NAT, so an authenticated device id takes precedence over the address.
func clientKey(c *gin.Context) string {
	if id := c.GetString("kioskID"); id != "" {
		return "kiosk:" + id
	}
	return "ip:" + getClientIP(c)
}

func getClientIP(c *gin.Context) string {
	// First hop of X-Forwarded-For, then X-Real-IP, then the socket.
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first, _, _ := strings.Cut(xff, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := strings.TrimSpace(c.GetHeader("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.Request.RemoteAddr
}

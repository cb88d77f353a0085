// Package identity derives a stable pseudo-identifier for browsing clients.
//
// The identifier is a digest of the forwarded client address and the
// User-Agent header. It is not an account identity: clients behind the same
// NAT with identical browsers collapse to one identifier.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

// visitorCtxKey is the gin context key holding the derived models.Visitor.
const visitorCtxKey = "visitor"

// ForwardedForHeader is preferred over the socket address when present.
const ForwardedForHeader = "X-Forwarded-For"

// Derive returns the 32-char hex digest of "{ip}_{userAgent}".
func Derive(ip, userAgent string) string {
	sum := md5.Sum([]byte(ip + "_" + userAgent))
	return hex.EncodeToString(sum[:])
}

// ClientIP returns the raw X-Forwarded-For value, or the host part of
// RemoteAddr when the header is absent.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get(ForwardedForHeader); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FromRequest derives the visitor for r.
func FromRequest(r *http.Request) models.Visitor {
	ip := ClientIP(r)
	ua := r.Header.Get("User-Agent")
	return models.Visitor{
		ID:        Derive(ip, ua),
		IP:        ip,
		UserAgent: ua,
	}
}

// Middleware attaches the derived visitor to every request.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(visitorCtxKey, FromRequest(c.Request))
		c.Next()
	}
}

// FromContext returns the visitor set by Middleware, deriving it on the spot
// when the middleware is not installed.
func FromContext(c *gin.Context) models.Visitor {
	if v, ok := c.Get(visitorCtxKey); ok {
		if visitor, ok := v.(models.Visitor); ok {
			return visitor
		}
	}
	return FromRequest(c.Request)
}

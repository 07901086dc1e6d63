package requestid

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header is the canonical request id header, echoed back on every response.
const Header = "X-Request-ID"

const contextKey = "request_id"

// maxInboundLen caps how much of a caller-supplied id we accept before
// minting our own. Keeps log lines bounded when a proxy misbehaves.
const maxInboundLen = 64

// Middleware tags every request with an id, honoring an inbound header when
// it looks sane and minting a UUID otherwise.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sanitize(c.GetHeader(Header))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the request id assigned by Middleware, or "" outside of it.
func Value(c *gin.Context) string {
	id, _ := c.Value(contextKey).(string)
	return id
}

func sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxInboundLen {
		return ""
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ""
		}
	}
	return raw
}

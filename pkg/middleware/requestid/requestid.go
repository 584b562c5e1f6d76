// Package requestid tags every request with a correlation id that the zap
// access log and error responses can echo back, so a scoresheet mutation can
// be traced across the recompute pipeline from a single log line.
package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// Header carries the id on both request and response. A client-supplied id is
// kept as-is; correlation is the point, uniqueness is the client's problem.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware ensures every request carries an id and echoes it on the
// response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = generateID()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value returns the request id stored in the gin context, or "" outside the
// middleware.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func generateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	// rand failing is near-impossible; a timestamp id still correlates.
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}

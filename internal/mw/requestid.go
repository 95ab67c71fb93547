package mw

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// RequestIDKey is the gin context key under which the id is stored.
const RequestIDKey = "request_id"

// RequestID assigns every request a UUIDv7 correlation id, honoring an id
// already supplied by the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			generated, err := uuid.NewV7()
			if err == nil {
				requestID = generated.String()
			}
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

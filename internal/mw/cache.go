// Package mw holds the gin middleware shared by the fleet API routes.
package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type teeWriter struct {
	gin.ResponseWriter
	buffer *bytes.Buffer
}

func (w teeWriter) Write(b []byte) (int, error) {
	w.buffer.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w teeWriter) WriteString(s string) (int, error) {
	w.buffer.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheGET serves successful GET responses from an in-memory cache keyed by
// request URI. Listing endpoints are read far more often than equipment
// changes, so a short TTL absorbs most of the read load. Any non-GET request
// flushes the cache so reads never return state older than the last write.
func CacheGET(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			store.Flush()
			return
		}

		key := c.Request.RequestURI
		if hit, found := store.Get(key); found {
			cached := hit.(cachedResponse)
			for name, values := range cached.headers {
				c.Writer.Header()[name] = values
			}
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body) //nolint:errcheck
			c.Abort()
			return
		}

		tee := &teeWriter{buffer: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = tee
		c.Next()

		if tee.Status() >= 200 && tee.Status() < 300 {
			store.Set(key, cachedResponse{
				status:  tee.Status(),
				headers: tee.Header().Clone(),
				body:    tee.buffer.Bytes(),
			}, ttl)
		}
	}
}

package middlewares

import (
	"bytes"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventmanager/metrics"
	"eventmanager/utils"
)

const (
	eventsListRoute = "/api/events"
	eventItemRoute  = "/api/events/:id"
)

type cachedBody struct {
	Status int
	Header map[string][]string
	Body   []byte
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CacheKeyFrom returns the redis key for a cacheable request and its kind
// ("list" or "item"). Only GETs on the public event routes are cacheable;
// nested routes such as /api/events/:id/registrations never are.
func CacheKeyFrom(c *gin.Context) (string, string) {
	if c.Request.Method != http.MethodGet {
		return "", ""
	}
	switch c.FullPath() {
	case eventItemRoute:
		return utils.EventItemCacheKey(c.Param("id")), "item"
	case eventsListRoute:
		return utils.EventListCachePrefix + sha1Hex(c.Request.URL.RawQuery), "list"
	}
	return "", ""
}

// ResponseCache serves cached 2xx responses for the public event reads. A
// nil client disables it.
func ResponseCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, _ := CacheKeyFrom(c)
		if rdb == nil || key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		if b, err := rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var hit cachedBody
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
				for k, vals := range hit.Header {
					for _, v := range vals {
						c.Writer.Header().Add(k, v)
					}
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Status(hit.Status)
				_, _ = c.Writer.Write(hit.Body)
				c.Abort()
				metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
				return
			}
		}
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

		buf := &bytes.Buffer{}
		bw := &bufferedWriter{ResponseWriter: c.Writer, buf: buf}
		c.Writer = bw
		c.Header("X-Cache", "MISS")

		c.Next()

		if bw.Status() < 200 || bw.Status() >= 300 {
			return
		}
		header := bw.Header().Clone()
		header.Del("X-Cache")
		item := cachedBody{Status: bw.Status(), Header: header, Body: buf.Bytes()}

		var o bytes.Buffer
		if err := gob.NewEncoder(&o).Encode(item); err == nil {
			_ = rdb.Set(ctx, key, o.Bytes(), ttl).Err()
		}
	}
}

type bufferedWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

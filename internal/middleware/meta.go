package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

type responseMeta struct {
	started time.Time
	values  map[string]interface{}
}

// WithResponseMeta starts a per-request meta block that handlers attach to
// the response envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{started: time.Now(), values: map[string]interface{}{}})
		c.Next()
	}
}

// ExtractMeta returns a copy of the request's meta with processing_time_ms
// filled in, or nil outside WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaOf(c)
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, len(meta.values)+1)
	for k, v := range meta.values {
		out[k] = v
	}
	out["processing_time_ms"] = time.Since(meta.started).Milliseconds()
	return out
}

// SetMeta attaches one key to the response meta.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if meta := metaOf(c); meta != nil {
		meta.values[key] = value
	}
}

func metaOf(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	raw, _ := c.Get(responseMetaKey)
	meta, _ := raw.(*responseMeta)
	return meta
}

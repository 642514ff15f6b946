package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginAllowed 判断 origin 是否命中白名单：完全相等，或以白名单项结尾（忽略前导点，用于子域名）。
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if origin == a {
			return true
		}
		if suffix := strings.TrimPrefix(a, "."); suffix != "" && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// AllowOrigin 返回 Access-Control-Allow-Origin 的取值。
// 白名单为空时返回 "*"；未命中时返回白名单第一项。
func AllowOrigin(allowed []string, origin string) string {
	if len(allowed) == 0 {
		return "*"
	}
	if OriginAllowed(allowed, origin) {
		return origin
	}
	return allowed[0]
}

// CORS 为每个响应写入跨域头，并直接以 204 应答 OPTIONS 预检请求。
func CORS(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", AllowOrigin(allowed, c.GetHeader("Origin")))
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Expose-Headers", "X-Conversation-Id")
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

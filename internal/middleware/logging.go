// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"bloomo-gateway/pkg/log"

	"github.com/gin-gonic/gin"
)

// 请求体与响应体在日志中最多保留的字节数，流式回复可能很长。
const maxLoggedBody = 2048

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 同时写入 gin.ResponseWriter 和内部 buffer，buffer 超过上限后不再追加
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

func (w bodyLogWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。
// 路径以 redactPrefixes 之一开头的请求只记录请求体和响应体的长度，不记录内容。
func RequestLogger(redactPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		redacted := hasAnyPrefix(c.Request.URL.Path, redactPrefixes)

		// 读取并重新缓存请求体，以便后续处理函数可以正常读取
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

		// websocket 升级需要原始的 ResponseWriter（Hijacker），不做包装
		var blw *bodyLogWriter
		if c.GetHeader("Upgrade") == "" && !redacted {
			blw = &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
			c.Writer = blw
		}

		c.Next()

		requestLog := truncate(requestBody)
		responseBody := ""
		if redacted {
			requestLog = fmt.Sprintf("[redacted %d bytes]", len(requestBody))
			responseBody = fmt.Sprintf("[redacted %d bytes]", c.Writer.Size())
		} else if blw != nil {
			responseBody = blw.body.String()
		}
		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBody", requestLog,
			"responseBody", responseBody,
		)
	}
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

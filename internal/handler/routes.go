package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 汇总需要注册的控制器。
type Handlers struct {
	Chat       *ChatHandler
	Lead       *LeadHandler
	Suggestion *SuggestionHandler
}

// RegisterRoutes 注册所有路由。CORS 中间件需要在此之前通过 r.Use 挂载。
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 预检请求由 CORS 中间件应答，这里只保证任意路径都能匹配到 OPTIONS
	r.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	api := r.Group("/api")
	{
		api.POST("/chat", h.Chat.Chat)
		api.GET("/chat/ws", h.Chat.Websocket)

		api.POST("/lead", h.Lead.Capture)
		api.POST("/lead/status", h.Lead.Status)

		api.GET("/suggestions", h.Suggestion.Suggestions)
	}
}

// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"bloomo-gateway/internal/middleware"
	"bloomo-gateway/internal/service"
	"bloomo-gateway/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ChatHandler 负责 HTTP 流式聊天与 WebSocket 聊天连接。
type ChatHandler struct {
	chatService service.ChatService
	upgrader    websocket.Upgrader
}

// NewChatHandler 创建一个新的 ChatHandler。allowedOrigins 为空时允许所有来源的 WebSocket 连接。
func NewChatHandler(chatService service.ChatService, allowedOrigins []string) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowedOrigins) == 0 || origin == "" || middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

// Chat 处理 POST /api/chat：校验通过后以 text/plain 分块流式返回模型输出。
func (h *ChatHandler) Chat(c *gin.Context) {
	// 凭据检查先于读取请求体
	if err := h.chatService.CheckConfigured(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	sess, err := h.chatService.Open(c.Request.Context(), req)
	if err != nil {
		status, msg := errorResponse(err)
		if status == http.StatusInternalServerError {
			log.Errorf("聊天请求失败: %v", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("X-Conversation-Id", sess.ConversationID)
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	h.chatService.Stream(c.Request.Context(), sess, &httpFragmentWriter{w: c.Writer})
}

// errorResponse 将流式输出前的错误映射为状态码与错误码。
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingAPIKey):
		return http.StatusInternalServerError, service.ErrMissingAPIKey.Error()
	case errors.Is(err, service.ErrMissingEmail):
		return http.StatusBadRequest, service.ErrMissingEmail.Error()
	case errors.Is(err, service.ErrConversationNotFound):
		return http.StatusNotFound, service.ErrConversationNotFound.Error()
	case errors.Is(err, service.ErrConversationForbidden):
		return http.StatusForbidden, service.ErrConversationForbidden.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// httpFragmentWriter 每写入一个片段就 Flush 一次。
type httpFragmentWriter struct {
	w gin.ResponseWriter
}

func (f *httpFragmentWriter) WriteFragment(fragment string) error {
	if _, err := f.w.WriteString(fragment); err != nil {
		return err
	}
	f.w.Flush()
	return nil
}

func (f *httpFragmentWriter) Close() error {
	f.w.Flush()
	return nil
}

// 一轮回复进行中时最多排队的请求帧数，超出的帧直接以错误帧拒绝。
const maxPendingFrames = 16

// wsControl 用于识别控制帧。
type wsControl struct {
	Type string `json:"type"`
}

// Websocket 处理 GET /api/chat/ws。每个文本帧是一次聊天请求，{"type":"stop"} 中断当前回复。
func (h *ChatHandler) Websocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立, remote=%s", c.ClientIP())

	connCtx, cancelConn := context.WithCancel(c.Request.Context())
	defer cancelConn()

	var (
		mu         sync.Mutex
		cancelTurn context.CancelFunc
		stopped    bool
	)
	frames := make(chan []byte, maxPendingFrames)
	out := &wsConn{conn: conn}

	// 读循环独立运行，流式输出过程中也能收到停止指令
	go func() {
		defer cancelConn()
		defer close(frames)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warnf("从 WebSocket 读取消息失败: %v", err)
				}
				return
			}
			var ctrl wsControl
			if json.Unmarshal(message, &ctrl) == nil && ctrl.Type == "stop" {
				mu.Lock()
				if cancelTurn != nil {
					stopped = true
					cancelTurn()
				}
				mu.Unlock()
				continue
			}
			// 读循环不能阻塞，否则后续的停止指令无法送达
			select {
			case frames <- message:
			default:
				out.writeJSON(gin.H{"error": "too_many_requests"})
			}
		}
	}()

	for message := range frames {
		turnCtx, cancel := context.WithCancel(connCtx)
		mu.Lock()
		cancelTurn, stopped = cancel, false
		mu.Unlock()

		h.serveTurn(turnCtx, out, message)

		mu.Lock()
		wasStopped := stopped
		cancelTurn = nil
		mu.Unlock()
		cancel()

		if wasStopped {
			out.writeJSON(gin.H{"type": "stop", "message": "response stopped", "timestamp": time.Now().UnixMilli()})
		}
		writeCompletion(out)
	}
}

// serveTurn 处理一帧聊天请求，错误以 {"error":...} 帧返回。
func (h *ChatHandler) serveTurn(ctx context.Context, out *wsConn, message []byte) {
	var req service.ChatRequest
	if err := json.Unmarshal(message, &req); err != nil {
		out.writeJSON(gin.H{"error": "invalid_request"})
		return
	}
	sess, err := h.chatService.Open(ctx, req)
	if err != nil {
		status, msg := errorResponse(err)
		if status == http.StatusInternalServerError {
			log.Errorf("WebSocket 聊天请求失败: %v", err)
		}
		out.writeJSON(gin.H{"error": msg})
		return
	}
	out.writeJSON(gin.H{"type": "conversation", "conversationId": sess.ConversationID, "model": sess.Model})
	h.chatService.Stream(ctx, sess, &wsFragmentWriter{out: out})
}

// wsConn 串行化写操作，读循环与回复循环都会写帧。
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writeJSON(v interface{}) {
	if err := c.WriteJSON(v); err != nil {
		log.Warnf("写入 WebSocket 帧失败: %v", err)
	}
}

// wsFragmentWriter 把每个片段包装成 {"chunk":"..."} 帧。
type wsFragmentWriter struct {
	out *wsConn
}

func (w *wsFragmentWriter) WriteFragment(fragment string) error {
	return w.out.WriteJSON(gin.H{"chunk": fragment})
}

// Close 不关闭连接，连接可以继续承载下一轮对话。
func (w *wsFragmentWriter) Close() error { return nil }

// writeCompletion 发送完成通知
func writeCompletion(out *wsConn) {
	now := time.Now()
	out.writeJSON(gin.H{
		"type":      "completion",
		"status":    "finished",
		"message":   "response completed",
		"timestamp": now.UnixMilli(),
		"date":      now.Format("2006-01-02T15:04:05"),
	})
}

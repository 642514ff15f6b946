package handler

import (
	"errors"
	"net/http"

	"bloomo-gateway/internal/service"
	"bloomo-gateway/pkg/log"

	"github.com/gin-gonic/gin"
)

// LeadHandler 处理留资相关的 API 请求。
type LeadHandler struct {
	leadService service.LeadService
}

// NewLeadHandler 创建一个新的 LeadHandler 实例。
func NewLeadHandler(leadService service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// Capture 处理 POST /api/lead。
func (h *LeadHandler) Capture(c *gin.Context) {
	var req service.LeadInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Capture: invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_request"})
		return
	}

	if _, err := h.leadService.Capture(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// LeadStatusRequest 定义了查询留资状态的请求体。
type LeadStatusRequest struct {
	Email string `json:"email"`
}

// Status 处理 POST /api/lead/status，返回该邮箱最近一次留资记录。
func (h *LeadHandler) Status(c *gin.Context) {
	var req LeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_request"})
		return
	}

	lead, err := h.leadService.Status(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "lead": lead})
}

func (h *LeadHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrMissingEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	log.Errorf("留资请求失败: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
}

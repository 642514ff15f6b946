package handler

import (
	"net/http"

	"bloomo-gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// SuggestionHandler 返回按行业分组的建议问题。
type SuggestionHandler struct {
	suggestionService service.SuggestionService
}

func NewSuggestionHandler(suggestionService service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

// Suggestions 处理 GET /api/suggestions?sector=|q=&lang=。
func (h *SuggestionHandler) Suggestions(c *gin.Context) {
	sector := c.Query("sector")
	if sector == "" {
		sector = c.Query("q")
	}
	c.JSON(http.StatusOK, h.suggestionService.Suggest(sector, c.Query("lang")))
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/news"
)

type NewsHandler struct {
	client *news.Client
	logger *zap.Logger
}

func NewNewsHandler(client *news.Client, logger *zap.Logger) *NewsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsHandler{client: client, logger: logger}
}

// Search 实时新闻搜索，错误返回 {error} 和对应的 HTTP 状态码
// GET /api/v1/news?q=&display=&start=&sort=
func (h *NewsHandler) Search(c *gin.Context) {
	params := news.ParseSearchParams(c.Query("q"), c.Query("display"), c.Query("start"), c.Query("sort"))

	resp, err := h.client.Search(c.Request.Context(), params)
	if err != nil {
		var upstream *news.UpstreamError
		switch {
		case errors.Is(err, news.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, dto.NewsErrorResponse{Error: "Search query is required"})
		case errors.Is(err, news.ErrNotConfigured):
			c.JSON(http.StatusInternalServerError, dto.NewsErrorResponse{Error: "API configuration error"})
		case errors.As(err, &upstream):
			c.JSON(upstream.StatusCode, dto.NewsErrorResponse{Error: "Failed to fetch news data"})
		default:
			h.logger.Error("news search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewsErrorResponse{Error: "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

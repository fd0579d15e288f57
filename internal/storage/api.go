package storage

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"insightstream/internal/constants"
	"insightstream/internal/logger"
	"insightstream/pkg/errors"
	"insightstream/pkg/models"
)

// APIHandler exposes read access to stored feedback.
type APIHandler struct {
	repo   Repository
	logger logger.Logger
}

func NewAPIHandler(repo Repository, log logger.Logger) *APIHandler {
	return &APIHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		feedback := v1.Group("/feedback")
		{
			feedback.GET("", h.ListFeedback)
			feedback.GET("/:message_id", h.GetFeedback)
		}
	}
}

func (h *APIHandler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

// ListFeedback returns stored feedback, newest first. Optional query params:
// category, sentiment, source_platform, limit, offset.
func (h *APIHandler) ListFeedback(c *gin.Context) {
	filter := ListFilter{
		Category:       c.Query("category"),
		Sentiment:      c.Query("sentiment"),
		SourcePlatform: c.Query("source_platform"),
		Limit:          parseLimit(c.Query("limit")),
		Offset:         parseOffset(c.Query("offset")),
	}

	records, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if records == nil {
		records = []models.EnrichedRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *APIHandler) GetFeedback(c *gin.Context) {
	messageID := c.Param("message_id")

	record, err := h.repo.GetByMessageID(c.Request.Context(), messageID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}

func parseOffset(offsetStr string) int {
	if offsetStr == "" {
		return 0
	}
	parsed, err := strconv.Atoi(offsetStr)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

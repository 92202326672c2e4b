package delivery

import (
	"net/http"

	"triagely-backend/internal/nlp/usecase"

	"github.com/gin-gonic/gin"
)

type NLPHandler struct {
	enrichUsecase usecase.EnrichUsecase
}

func NewNLPHandler(enrichUsecase usecase.EnrichUsecase) *NLPHandler {
	return &NLPHandler{
		enrichUsecase: enrichUsecase,
	}
}

func (h *NLPHandler) CreateSummary(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	summary, err := h.enrichUsecase.SummarizeMessage(c.Request.Context(), userID, messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message_id": messageID,
		"summary":    summary,
	})
}

func (h *NLPHandler) CreateChecklist(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	checklist, err := h.enrichUsecase.ExtractChecklist(c.Request.Context(), userID, messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message_id": messageID,
		"checklist":  checklist,
	})
}

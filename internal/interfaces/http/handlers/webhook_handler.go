package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/interfaces/http/response"
)

type chainIngester interface {
	ProcessBlock(ctx context.Context, in *entities.ChainBlockInput) (*entities.ChainBlockResult, error)
}

// WebhookHandler receives the chain ingestion feed
type WebhookHandler struct {
	ingester chainIngester
}

func NewWebhookHandler(ingester chainIngester) *WebhookHandler {
	return &WebhookHandler{ingester: ingester}
}

// HandleChainBlock applies one block of contract deploys, mints and update notifications
// POST /webhooks/chain
func (h *WebhookHandler) HandleChainBlock(c *gin.Context) {
	var input entities.ChainBlockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.ingester.ProcessBlock(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

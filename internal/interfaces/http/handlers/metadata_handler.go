package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/interfaces/http/response"
)

type bundleService interface {
	GetFtMetadataBundle(ctx context.Context, principal, locale string) (*entities.MetadataBundle, error)
	GetNftMetadataBundle(ctx context.Context, principal string, tokenNumber int64, locale string) (*entities.MetadataBundle, error)
	GetSftMetadataBundle(ctx context.Context, principal string, tokenNumber int64, locale string) (*entities.MetadataBundle, error)
}

type statusService interface {
	GetStatus(ctx context.Context) (*entities.ServiceStatus, error)
}

// MetadataHandler serves token metadata bundles
type MetadataHandler struct {
	bundles bundleService
	status  statusService
}

func NewMetadataHandler(bundles bundleService, status statusService) *MetadataHandler {
	return &MetadataHandler{bundles: bundles, status: status}
}

// GetStatus returns indexing progress
// GET /metadata/v1/
func (h *MetadataHandler) GetStatus(c *gin.Context) {
	status, err := h.status.GetStatus(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// GetFt returns fungible token metadata
// GET /metadata/v1/ft/:principal
func (h *MetadataHandler) GetFt(c *gin.Context) {
	principal, ok := principalParam(c)
	if !ok {
		return
	}
	bundle, err := h.bundles.GetFtMetadataBundle(c.Request.Context(), principal, c.Query("locale"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, newFtResponse(bundle))
}

// GetNft returns non-fungible token metadata
// GET /metadata/v1/nft/:principal/:token_id
func (h *MetadataHandler) GetNft(c *gin.Context) {
	principal, tokenNumber, ok := tokenParams(c)
	if !ok {
		return
	}
	bundle, err := h.bundles.GetNftMetadataBundle(c.Request.Context(), principal, tokenNumber, c.Query("locale"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, newNftResponse(bundle))
}

// GetSft returns semi-fungible token metadata
// GET /metadata/v1/sft/:principal/:token_id
func (h *MetadataHandler) GetSft(c *gin.Context) {
	principal, tokenNumber, ok := tokenParams(c)
	if !ok {
		return
	}
	bundle, err := h.bundles.GetSftMetadataBundle(c.Request.Context(), principal, tokenNumber, c.Query("locale"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, newSftResponse(bundle))
}

func principalParam(c *gin.Context) (string, bool) {
	principal := c.Param("principal")
	if !entities.IsContractPrincipal(principal) {
		response.Error(c, domainerrors.BadRequest("Invalid contract principal"))
		return "", false
	}
	return principal, true
}

func tokenParams(c *gin.Context) (string, int64, bool) {
	principal, ok := principalParam(c)
	if !ok {
		return "", 0, false
	}
	tokenNumber, err := strconv.ParseInt(c.Param("token_id"), 10, 64)
	if err != nil || tokenNumber < 1 {
		response.Error(c, domainerrors.BadRequest("Invalid token id"))
		return "", 0, false
	}
	return principal, tokenNumber, true
}

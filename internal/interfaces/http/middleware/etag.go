package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"token-metadata.backend/internal/usecases"
	"token-metadata.backend/pkg/logger"
)

const (
	cacheControlRevalidate = "public, no-cache, must-revalidate"
	cacheControlNoStore    = "no-store"
)

type etagSource interface {
	GetTokenEtag(ctx context.Context, principal string, tokenNumber int64) (string, bool, error)
}

// noCacheOnError drops validators from error responses before their headers are sent.
type noCacheOnError struct {
	gin.ResponseWriter
}

func (w *noCacheOnError) WriteHeader(code int) {
	if code >= http.StatusBadRequest {
		stripCacheHeaders(w.Header())
	}
	w.ResponseWriter.WriteHeader(code)
}

func stripCacheHeaders(h http.Header) {
	h.Del("ETag")
	h.Del("Cache-Control")
	h.Set("Cache-Control", cacheControlNoStore)
}

// EtagMiddleware answers conditional token metadata requests.
// The token is taken from the :principal and :token_id route params, or recovered from the path.
func EtagMiddleware(source etagSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		principal, tokenNumber, ok := tokenFromRequest(c)
		if !ok {
			stripCacheHeaders(c.Writer.Header())
			c.Next()
			return
		}

		etag, found, err := source.GetTokenEtag(ctx, principal, tokenNumber)
		if err != nil {
			logger.Error(ctx, "Failed to compute etag", zap.String("principal", principal), zap.Int64("tokenNumber", tokenNumber), zap.Error(err))
		}
		if err != nil || !found {
			stripCacheHeaders(c.Writer.Header())
			c.Next()
			return
		}

		if inm := c.GetHeader("If-None-Match"); inm != "" && usecases.EtagMatches(inm, etag) {
			c.Header("ETag", `"`+etag+`"`)
			c.AbortWithStatus(http.StatusNotModified)
			return
		}

		c.Header("ETag", `"`+etag+`"`)
		c.Header("Cache-Control", cacheControlRevalidate)
		c.Writer = &noCacheOnError{ResponseWriter: c.Writer}
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) (string, int64, bool) {
	principal := c.Param("principal")
	if principal == "" {
		return usecases.ParseTokenPath(c.Request.URL.Path)
	}
	raw := c.Param("token_id")
	if raw == "" {
		return principal, 1, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return "", 0, false
	}
	return principal, n, true
}

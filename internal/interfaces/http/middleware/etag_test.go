package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const etagTestPrincipal = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7.megapont-ape-club"

type etagSourceStub struct {
	etags map[string]string
	err   error
	calls []string
}

func (s *etagSourceStub) GetTokenEtag(_ context.Context, principal string, tokenNumber int64) (string, bool, error) {
	key := principal + ":" + strconv.FormatInt(tokenNumber, 10)
	s.calls = append(s.calls, key)
	if s.err != nil {
		return "", false, s.err
	}
	tag, ok := s.etags[key]
	return tag, ok, nil
}

func newEtagRouter(source *etagSourceStub, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EtagMiddleware(source))
	r.GET("/metadata/v1/nft/:principal/:token_id", func(c *gin.Context) {
		c.JSON(status, gin.H{"ok": status < 300})
	})
	r.GET("/metadata/v1/ft/:principal", func(c *gin.Context) {
		c.JSON(status, gin.H{"ok": status < 300})
	})
	r.GET("/other/*path", func(c *gin.Context) {
		c.JSON(status, gin.H{"ok": status < 300})
	})
	return r
}

func doGet(r *gin.Engine, path, ifNoneMatch string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ifNoneMatch != "" {
		req.Header.Set("If-None-Match", ifNoneMatch)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEtagMiddleware_SetsValidatorOnMiss(t *testing.T) {
	source := &etagSourceStub{etags: map[string]string{etagTestPrincipal + ":7": "abc"}}
	r := newEtagRouter(source, http.StatusOK)

	w := doGet(r, "/metadata/v1/nft/"+etagTestPrincipal+"/7", `"zzz"`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `"abc"`, w.Header().Get("ETag"))
	require.Equal(t, "public, no-cache, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestEtagMiddleware_NotModified(t *testing.T) {
	source := &etagSourceStub{etags: map[string]string{etagTestPrincipal + ":7": "abc"}}
	r := newEtagRouter(source, http.StatusOK)

	for _, header := range []string{`"abc"`, `W/"abc"`, `"x", abc`, `*`} {
		w := doGet(r, "/metadata/v1/nft/"+etagTestPrincipal+"/7", header)
		require.Equal(t, http.StatusNotModified, w.Code, header)
		require.Empty(t, w.Body.String())
	}
}

func TestEtagMiddleware_FtDefaultsToTokenOne(t *testing.T) {
	source := &etagSourceStub{etags: map[string]string{etagTestPrincipal + ":1": "ft"}}
	r := newEtagRouter(source, http.StatusOK)

	w := doGet(r, "/metadata/v1/ft/"+etagTestPrincipal, "")
	require.Equal(t, `"ft"`, w.Header().Get("ETag"))
	require.Equal(t, []string{etagTestPrincipal + ":1"}, source.calls)
}

func TestEtagMiddleware_FallsBackToPathScan(t *testing.T) {
	source := &etagSourceStub{etags: map[string]string{etagTestPrincipal + ":3": "scan"}}
	r := newEtagRouter(source, http.StatusOK)

	w := doGet(r, "/other/"+etagTestPrincipal+"/3", "")
	require.Equal(t, `"scan"`, w.Header().Get("ETag"))
}

func TestEtagMiddleware_UnknownTokenIsNotCached(t *testing.T) {
	source := &etagSourceStub{etags: map[string]string{}}
	r := newEtagRouter(source, http.StatusNotFound)

	w := doGet(r, "/metadata/v1/nft/"+etagTestPrincipal+"/9", `"abc"`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Empty(t, w.Header().Get("ETag"))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestEtagMiddleware_ErrorResponsesDropValidator(t *testing.T) {
	source := &etagSourceStub{etags: map[string]string{etagTestPrincipal + ":7": "abc"}}
	r := newEtagRouter(source, http.StatusUnprocessableEntity)

	w := doGet(r, "/metadata/v1/nft/"+etagTestPrincipal+"/7", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Empty(t, w.Header().Get("ETag"))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestEtagMiddleware_SourceErrorServesUncached(t *testing.T) {
	source := &etagSourceStub{err: errors.New("db down")}
	r := newEtagRouter(source, http.StatusOK)

	w := doGet(r, "/metadata/v1/nft/"+etagTestPrincipal+"/7", `"abc"`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("ETag"))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestEtagMiddleware_InvalidTokenID(t *testing.T) {
	source := &etagSourceStub{}
	r := newEtagRouter(source, http.StatusBadRequest)

	w := doGet(r, "/metadata/v1/nft/"+etagTestPrincipal+"/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, source.calls)
	require.Empty(t, w.Header().Get("ETag"))
}

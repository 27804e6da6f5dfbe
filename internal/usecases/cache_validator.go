package usecases

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/pkg/logger"
)

// EtagStore caches computed etags
type EtagStore interface {
	GetEtag(ctx context.Context, key string) (string, bool, error)
	SetEtag(ctx context.Context, key, etag string, ttl time.Duration) error
	DeleteEtag(ctx context.Context, key string) error
}

// CacheValidator computes token etags for conditional requests.
type CacheValidator struct {
	metadata repositories.MetadataRepository
	store    EtagStore
	ttl      time.Duration
}

// NewCacheValidator creates a validator. store may be nil, etags are then computed on every call.
func NewCacheValidator(metadata repositories.MetadataRepository, store EtagStore, ttl time.Duration) *CacheValidator {
	return &CacheValidator{metadata: metadata, store: store, ttl: ttl}
}

// GetTokenEtag returns the etag of a token, false when the token is unknown.
func (v *CacheValidator) GetTokenEtag(ctx context.Context, principal string, tokenNumber int64) (string, bool, error) {
	key := etagKey(principal, tokenNumber)
	if v.store != nil {
		tag, ok, err := v.store.GetEtag(ctx, key)
		if err != nil {
			logger.Warn(ctx, "Etag cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return tag, true, nil
		}
	}

	modified, err := v.metadata.LastModified(ctx, principal, tokenNumber)
	if err != nil {
		if errors.Is(err, domainerrors.ErrTokenNotFound) || errors.Is(err, domainerrors.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	tag := ComputeEtag(principal, tokenNumber, modified)

	if v.store != nil {
		if err := v.store.SetEtag(ctx, key, tag, v.ttl); err != nil {
			logger.Warn(ctx, "Etag cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return tag, true, nil
}

// Invalidate forgets the cached etag of a token.
func (v *CacheValidator) Invalidate(ctx context.Context, principal string, tokenNumber int64) {
	if v.store == nil {
		return
	}
	key := etagKey(principal, tokenNumber)
	if err := v.store.DeleteEtag(ctx, key); err != nil {
		logger.Warn(ctx, "Etag cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func etagKey(principal string, tokenNumber int64) string {
	return principal + ":" + strconv.FormatInt(tokenNumber, 10)
}

// ComputeEtag derives an opaque validator that changes whenever modified changes.
func ComputeEtag(principal string, tokenNumber int64, modified time.Time) string {
	sum := blake2b.Sum256([]byte(etagKey(principal, tokenNumber) + ":" + strconv.FormatInt(modified.UTC().UnixNano(), 10)))
	return hex.EncodeToString(sum[:16])
}

// ParseIfNoneMatch splits an If-None-Match header into bare etag values.
// Weak prefixes and quotes are stripped, unquoted values are accepted.
func ParseIfNoneMatch(header string) []string {
	var out []string
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(part)
		if len(tag) >= 2 && (tag[:2] == "W/" || tag[:2] == "w/") {
			tag = strings.TrimSpace(tag[2:])
		}
		tag = strings.Trim(tag, `"`)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// EtagMatches reports whether the If-None-Match header lists etag or the wildcard.
func EtagMatches(header, etag string) bool {
	for _, tag := range ParseIfNoneMatch(header) {
		if tag == "*" || tag == etag {
			return true
		}
	}
	return false
}

// ParseTokenPath recovers the contract principal and token number from a request path
// by walking segments from the end. The token number defaults to 1.
func ParseTokenPath(path string) (string, int64, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	tokenNumber := int64(1)
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if entities.IsContractPrincipal(seg) {
			if i+1 < len(segments) {
				if n, err := strconv.ParseInt(segments[i+1], 10, 64); err == nil {
					tokenNumber = n
				}
			}
			return seg, tokenNumber, true
		}
	}
	return "", 0, false
}

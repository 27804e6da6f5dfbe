package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/pkg/logger"
)

const defaultMetadataSIP = 16

// MetadataFetcher retrieves raw metadata documents
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	ResolveHost(uri string) string
}

// ImageCacher produces cached copies of token images
type ImageCacher interface {
	Cache(ctx context.Context, image string) (cached null.String, thumbnail null.String, err error)
}

// MetadataNormalizer turns SIP-016 documents into metadata records, one default
// record plus one per advertised locale.
type MetadataNormalizer struct {
	fetcher MetadataFetcher
	images  ImageCacher
}

func NewMetadataNormalizer(fetcher MetadataFetcher, images ImageCacher) *MetadataNormalizer {
	return &MetadataNormalizer{fetcher: fetcher, images: images}
}

type localization struct {
	URI     string   `json:"uri"`
	Default string   `json:"default"`
	Locales []string `json:"locales"`
}

type rawAttribute struct {
	TraitType   *string         `json:"trait_type"`
	Value       json.RawMessage `json:"value"`
	DisplayType *string         `json:"display_type"`
}

// Normalize builds the records of a token from its root document.
// Locale documents are fetched through the same fetcher and laid over the root document.
func (n *MetadataNormalizer) Normalize(ctx context.Context, raw []byte) ([]*entities.MetadataRecord, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}
	def, err := buildRecord(doc, null.String{})
	if err != nil {
		return nil, err
	}
	records := []*entities.MetadataRecord{def}

	loc, err := parseLocalization(doc)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		if loc.Default != "" {
			def.DefaultLocale = null.StringFrom(loc.Default)
		}
		seen := make(map[string]struct{}, len(loc.Locales))
		for _, locale := range loc.Locales {
			if locale == "" || locale == loc.Default {
				continue
			}
			if _, dup := seen[locale]; dup {
				continue
			}
			seen[locale] = struct{}{}
			uri := strings.ReplaceAll(loc.URI, "{locale}", locale)
			body, err := n.fetcher.Fetch(ctx, uri)
			if err != nil {
				return nil, fmt.Errorf("locale %s: %w", locale, err)
			}
			overlay, err := parseDocument(body)
			if err != nil {
				return nil, fmt.Errorf("locale %s: %w", locale, err)
			}
			rec, err := buildRecord(mergeDocuments(doc, overlay), null.StringFrom(locale))
			if err != nil {
				return nil, fmt.Errorf("locale %s: %w", locale, err)
			}
			records = append(records, rec)
		}
	}

	if n.images != nil {
		for _, rec := range records {
			if !rec.Image.Valid || rec.Image.String == "" {
				continue
			}
			cached, thumb, err := n.images.Cache(ctx, rec.Image.String)
			if err != nil {
				// records are still useful without a cached copy
				logger.Warn(ctx, "Image cache failed", zap.String("image", rec.Image.String), zap.Error(err))
				continue
			}
			rec.CachedImage = cached
			rec.CachedThumbnailImage = thumb
		}
	}
	return records, nil
}

func parseDocument(raw []byte) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: document is not a json object", domainerrors.ErrMalformedMetadata)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrMalformedMetadata, err)
	}
	return doc, nil
}

func parseLocalization(doc map[string]json.RawMessage) (*localization, error) {
	field, ok := doc["localization"]
	if !ok || isJSONNull(field) {
		return nil, nil
	}
	var loc localization
	if err := json.Unmarshal(field, &loc); err != nil {
		return nil, fmt.Errorf("%w: localization: %v", domainerrors.ErrMalformedMetadata, err)
	}
	if loc.URI == "" || len(loc.Locales) == 0 {
		return nil, nil
	}
	return &loc, nil
}

// mergeDocuments returns base with every top-level key of overlay replacing the base value.
func mergeDocuments(base, overlay map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if k == "localization" {
			continue
		}
		out[k] = v
	}
	return out
}

func buildRecord(doc map[string]json.RawMessage, locale null.String) (*entities.MetadataRecord, error) {
	rec := &entities.MetadataRecord{Locale: locale, SIP: defaultMetadataSIP}

	if field, ok := doc["sip"]; ok && !isJSONNull(field) {
		if err := json.Unmarshal(field, &rec.SIP); err != nil {
			return nil, fmt.Errorf("%w: sip must be a number", domainerrors.ErrMalformedMetadata)
		}
	}

	name, err := optionalString(doc, "name")
	if err != nil {
		return nil, err
	}
	if !name.Valid || strings.TrimSpace(name.String) == "" {
		return nil, fmt.Errorf("%w: name is required", domainerrors.ErrMalformedMetadata)
	}
	rec.Name = name.String

	if rec.Description, err = optionalString(doc, "description"); err != nil {
		return nil, err
	}
	if rec.Image, err = optionalString(doc, "image"); err != nil {
		return nil, err
	}

	if field, ok := doc["attributes"]; ok && !isJSONNull(field) {
		var attrs []rawAttribute
		if err := json.Unmarshal(field, &attrs); err != nil {
			return nil, fmt.Errorf("%w: attributes: %v", domainerrors.ErrMalformedMetadata, err)
		}
		for _, a := range attrs {
			if a.TraitType == nil || len(a.Value) == 0 {
				continue
			}
			attr := entities.MetadataAttribute{TraitType: *a.TraitType, Value: a.Value}
			if a.DisplayType != nil {
				attr.DisplayType = null.StringFrom(*a.DisplayType)
			}
			rec.Attributes = append(rec.Attributes, attr)
		}
	}

	if field, ok := doc["properties"]; ok && !isJSONNull(field) {
		var props map[string]json.RawMessage
		if err := json.Unmarshal(field, &props); err != nil {
			return nil, fmt.Errorf("%w: properties: %v", domainerrors.ErrMalformedMetadata, err)
		}
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec.Properties = append(rec.Properties, entities.MetadataProperty{Name: k, Value: props[k]})
		}
	}
	return rec, nil
}

func optionalString(doc map[string]json.RawMessage, key string) (null.String, error) {
	field, ok := doc[key]
	if !ok || isJSONNull(field) {
		return null.String{}, nil
	}
	var s string
	if err := json.Unmarshal(field, &s); err != nil {
		return null.String{}, fmt.Errorf("%w: %s must be a string", domainerrors.ErrMalformedMetadata, key)
	}
	return null.StringFrom(s), nil
}

func isJSONNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}

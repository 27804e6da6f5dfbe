package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// MetadataRecord is the normalized SIP-016 metadata of a token for one locale.
// A null Locale marks the default record.
type MetadataRecord struct {
	ID                   uuid.UUID           `json:"-"`
	TokenID              uuid.UUID           `json:"-"`
	Locale               null.String         `json:"-"`
	// DefaultLocale is the locale the document declares its default record in.
	DefaultLocale        null.String         `json:"-"`
	SIP                  int                 `json:"sip"`
	Name                 string              `json:"name"`
	Description          null.String         `json:"description"`
	Image                null.String         `json:"image"`
	CachedImage          null.String         `json:"cached_image"`
	CachedThumbnailImage null.String         `json:"cached_thumbnail_image"`
	Attributes           []MetadataAttribute `json:"attributes,omitempty"`
	Properties           []MetadataProperty  `json:"-"`
	CreatedAt            time.Time           `json:"-"`
	UpdatedAt            time.Time           `json:"-"`
}

// IsDefault reports whether the record is the locale-less default.
func (r *MetadataRecord) IsDefault() bool {
	return !r.Locale.Valid || r.Locale.String == ""
}

// ServesLocale reports whether a default record is the answer for locale.
func (r *MetadataRecord) ServesLocale(locale string) bool {
	return r.IsDefault() && r.DefaultLocale.Valid && r.DefaultLocale.String == locale
}

// MetadataAttribute is one trait of a token.
type MetadataAttribute struct {
	TraitType   string          `json:"trait_type"`
	Value       json.RawMessage `json:"value"`
	DisplayType null.String     `json:"display_type"`
}

// MetadataProperty is a free-form named value.
type MetadataProperty struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// MetadataBundle is the fully resolved view of a token served by the API.
type MetadataBundle struct {
	Contract *SmartContract
	Token    *Token
	// Metadata is the record for the requested locale, or the default record.
	Metadata   *MetadataRecord
	Properties map[string]json.RawMessage
}

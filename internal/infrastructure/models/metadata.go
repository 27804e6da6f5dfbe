package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"
)

// Metadata is one locale of a token's SIP-016 metadata. Locale NULL is the default.
type Metadata struct {
	ID                   uuid.UUID   `gorm:"type:uuid;primaryKey"`
	TokenID              uuid.UUID   `gorm:"type:uuid;not null;index"`
	Locale               null.String `gorm:"type:text"`
	DefaultLocale        null.String `gorm:"type:text"`
	SIP                  int         `gorm:"column:sip;not null;default:16"`
	Name                 string      `gorm:"type:text;not null"`
	Description          null.String `gorm:"type:text"`
	Image                null.String `gorm:"type:text"`
	CachedImage          null.String `gorm:"type:text"`
	CachedThumbnailImage null.String `gorm:"type:text"`
	CreatedAt            time.Time
	UpdatedAt            time.Time `gorm:"autoUpdateTime:false"`

	Attributes []MetadataAttribute `gorm:"foreignKey:MetadataID;constraint:OnDelete:CASCADE"`
	Properties []MetadataProperty  `gorm:"foreignKey:MetadataID;constraint:OnDelete:CASCADE"`
}

func (Metadata) TableName() string {
	return "metadata"
}

type MetadataAttribute struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	MetadataID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Position    int            `gorm:"not null;default:0"`
	TraitType   string         `gorm:"type:text;not null"`
	Value       datatypes.JSON `gorm:"not null"`
	DisplayType null.String    `gorm:"type:text"`
}

func (MetadataAttribute) TableName() string {
	return "metadata_attributes"
}

type MetadataProperty struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	MetadataID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Position   int            `gorm:"not null;default:0"`
	Name       string         `gorm:"type:text;not null"`
	Value      datatypes.JSON `gorm:"not null"`
}

func (MetadataProperty) TableName() string {
	return "metadata_properties"
}

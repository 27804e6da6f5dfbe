package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// TokenType is the token variant
type TokenType string

const (
	TokenTypeFT  TokenType = "ft"
	TokenTypeNFT TokenType = "nft"
	TokenTypeSFT TokenType = "sft"
)

// Token is a single fungible, non-fungible or semi-fungible token of a contract.
// Descriptive fields stay null until the first successful fetch.
type Token struct {
	ID                   uuid.UUID           `json:"id"`
	SmartContractID      uuid.UUID           `json:"smartContractId"`
	Type                 TokenType           `json:"type"`
	TokenNumber          int64               `json:"tokenNumber"`
	URI                  null.String         `json:"uri"`
	Name                 null.String         `json:"name"`
	Symbol               null.String         `json:"symbol"`
	Decimals             null.Int            `json:"decimals"`
	TotalSupply          decimal.NullDecimal `json:"totalSupply"`
	UpdateNotificationID uuid.NullUUID       `json:"updateNotificationId"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// ResolvedURI substitutes the `{id}` placeholder used by SIP-009/SIP-013 token URIs.
func (t *Token) ResolvedURI() string {
	if !t.URI.Valid {
		return ""
	}
	uri := t.URI.String
	if strings.Contains(uri, "{id}") {
		uri = strings.ReplaceAll(uri, "{id}", fmt.Sprintf("%d", t.TokenNumber))
	}
	return uri
}

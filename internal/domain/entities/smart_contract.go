package entities

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// SIP identifies the token standard a contract implements
type SIP string

const (
	SIP009 SIP = "sip-009" // non-fungible
	SIP010 SIP = "sip-010" // fungible
	SIP013 SIP = "sip-013" // semi-fungible
)

var contractPrincipalRegex = regexp.MustCompile(`^S[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{28,41}\.[a-zA-Z]([a-zA-Z0-9]|[-_]){0,39}$`)

// IsContractPrincipal reports whether s looks like `<address>.<contract-name>`.
func IsContractPrincipal(s string) bool {
	return contractPrincipalRegex.MatchString(s)
}

// Valid reports whether the SIP is one of the supported token standards.
func (s SIP) Valid() bool {
	switch s {
	case SIP009, SIP010, SIP013:
		return true
	}
	return false
}

// TokenType returns the token variant minted by contracts of this standard.
func (s SIP) TokenType() TokenType {
	switch s {
	case SIP009:
		return TokenTypeNFT
	case SIP013:
		return TokenTypeSFT
	default:
		return TokenTypeFT
	}
}

// SmartContract is a deployed token contract. Immutable after creation except TokenCount.
type SmartContract struct {
	ID          uuid.UUID       `json:"id"`
	Principal   string          `json:"principal"`
	SIP         SIP             `json:"sip"`
	ABI         json.RawMessage `json:"abi,omitempty"`
	TxID        string          `json:"txId"`
	BlockHeight int64           `json:"blockHeight"`
	TokenCount  int64           `json:"tokenCount"`
	// TokenURI is the uri template reported at deploy time, may contain `{id}`.
	TokenURI  null.String `json:"tokenUri"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ExpectedTokenCount is how many tokens an import materializes. Fungible
// contracts always hold exactly one.
func (c *SmartContract) ExpectedTokenCount() int64 {
	if c.SIP.TokenType() == TokenTypeFT {
		return 1
	}
	return max(c.TokenCount, 0)
}

package entities

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ChainBlockInput is one block worth of token activity pushed by the chain ingestion feed.
type ChainBlockInput struct {
	BlockHeight    int64                 `json:"blockHeight" binding:"required,min=1"`
	IndexBlockHash string                `json:"indexBlockHash" binding:"required"`
	Contracts      []ContractDeployInput `json:"contracts"`
	Mints          []TokenMintInput      `json:"mints"`
	Notifications  []NotificationInput   `json:"notifications"`
}

// ContractDeployInput describes a newly deployed token contract
type ContractDeployInput struct {
	Principal  string          `json:"principal" binding:"required"`
	SIP        SIP             `json:"sip" binding:"required"`
	TxID       string          `json:"txId" binding:"required"`
	ABI        json.RawMessage `json:"abi"`
	TokenCount int64           `json:"tokenCount"`
	TokenURI   string          `json:"tokenUri"`

	// Fungible token details read from the contract at deploy time.
	Name        string           `json:"name"`
	Symbol      string           `json:"symbol"`
	Decimals    *int             `json:"decimals"`
	TotalSupply *decimal.Decimal `json:"totalSupply"`
}

// TokenMintInput announces a new NFT or SFT token id.
type TokenMintInput struct {
	Principal   string `json:"principal" binding:"required"`
	TokenNumber int64  `json:"tokenNumber" binding:"required,min=1"`
	TokenURI    string `json:"tokenUri"`
}

// NotificationInput is a SIP-019 token-metadata-update print event.
type NotificationInput struct {
	Principal string `json:"principal" binding:"required"`
	// TokenNumbers empty means every token of the contract.
	TokenNumbers []int64    `json:"tokenNumbers"`
	TxID         string     `json:"txId" binding:"required"`
	TxIndex      int        `json:"txIndex"`
	EventIndex   int        `json:"eventIndex"`
	UpdateMode   UpdateMode `json:"updateMode"`
	TTL          *int64     `json:"ttl"`
}

// ChainBlockResult summarizes what an ingested block changed.
type ChainBlockResult struct {
	Applied       bool  `json:"applied"`
	BlockHeight   int64 `json:"blockHeight"`
	Contracts     int   `json:"contracts"`
	Mints         int   `json:"mints"`
	Notifications int   `json:"notifications"`
	JobsEnqueued  int   `json:"jobsEnqueued"`
}

// ServiceStatus is the summary served on the API root.
type ServiceStatus struct {
	ChainTip  *ChainTip        `json:"chainTip"`
	Tokens    map[string]int64 `json:"tokens"`
	Contracts map[string]int64 `json:"contracts"`
	Jobs      map[string]int64 `json:"jobs"`
}

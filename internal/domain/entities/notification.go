package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// UpdateMode is the refresh policy requested by a SIP-019 notification
type UpdateMode string

const (
	UpdateModeStandard UpdateMode = "standard"
	UpdateModeFrozen   UpdateMode = "frozen"
	UpdateModeDynamic  UpdateMode = "dynamic"
)

func (m UpdateMode) Valid() bool {
	switch m {
	case UpdateModeStandard, UpdateModeFrozen, UpdateModeDynamic:
		return true
	}
	return false
}

// Notification is an on-chain metadata update notification for one token.
// Contract-wide events are stored once per token. Never mutated once stored.
type Notification struct {
	ID              uuid.UUID  `json:"id"`
	SmartContractID uuid.UUID  `json:"smartContractId"`
	TokenID         uuid.UUID  `json:"tokenId"`
	BlockHeight     int64      `json:"blockHeight"`
	IndexBlockHash  string     `json:"indexBlockHash"`
	TxID            string     `json:"txId"`
	TxIndex         int        `json:"txIndex"`
	EventIndex      int        `json:"eventIndex"`
	UpdateMode      UpdateMode `json:"updateMode"`
	// TTL is in seconds and only meaningful for dynamic mode.
	TTL       null.Int64 `json:"ttl"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Before reports whether n precedes other in chain order.
func (n *Notification) Before(other *Notification) bool {
	if n.BlockHeight != other.BlockHeight {
		return n.BlockHeight < other.BlockHeight
	}
	if n.TxIndex != other.TxIndex {
		return n.TxIndex < other.TxIndex
	}
	return n.EventIndex < other.EventIndex
}

// MaxNotificationTTL is the longest dynamic ttl honored, in seconds.
const MaxNotificationTTL int64 = 10 * 365 * 24 * 60 * 60

// ClampTTL bounds a ttl in seconds to MaxNotificationTTL.
func ClampTTL(seconds int64) int64 {
	return min(seconds, MaxNotificationTTL)
}

// TTLDuration returns the notification ttl or fallback when unset.
func (n *Notification) TTLDuration(fallback time.Duration) time.Duration {
	if n.TTL.Valid && n.TTL.Int64 > 0 {
		return time.Duration(ClampTTL(n.TTL.Int64)) * time.Second
	}
	return fallback
}

// FrozenToken marks a token whose metadata must not be refreshed automatically.
type FrozenToken struct {
	TokenID   uuid.UUID `json:"tokenId"`
	CreatedAt time.Time `json:"createdAt"`
}

// DynamicToken is a dynamic-mode token together with the notification that put it there.
type DynamicToken struct {
	Token        Token
	Notification Notification
}

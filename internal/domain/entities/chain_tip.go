package entities

import "time"

// ChainTip is the single row tracking the last processed block.
type ChainTip struct {
	BlockHeight               int64     `json:"blockHeight"`
	LastDynamicTokenRefreshAt time.Time `json:"lastDynamicTokenRefreshAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

// RateLimitedHost is a metadata host that asked us to back off.
type RateLimitedHost struct {
	Hostname   string    `json:"hostname"`
	RetryAfter time.Time `json:"retryAfter"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Active reports whether the penalty still applies at now.
func (h *RateLimitedHost) Active(now time.Time) bool {
	return h.RetryAfter.After(now)
}

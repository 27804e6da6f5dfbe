package usecases

import (
	"errors"
	"fmt"
	"time"

	domainerrors "token-metadata.backend/internal/domain/errors"
)

// hostPenaltyError is implemented by fetch errors that carry a rate limited response.
type hostPenaltyError interface {
	RateLimited() bool
	PenaltyHost() string
	PenaltyDuration() time.Duration
}

// HostLimitedError is returned for a job whose host is still backing off.
type HostLimitedError struct {
	Host       string
	RetryAfter time.Time
}

func (e *HostLimitedError) Error() string {
	return fmt.Sprintf("%s: %s until %s", e.Host, domainerrors.ErrHostRateLimited, e.RetryAfter.Format(time.RFC3339))
}

func (e *HostLimitedError) Unwrap() error {
	return domainerrors.ErrHostRateLimited
}

// FailureDecision is what the worker does with a failed job.
type FailureDecision struct {
	Permanent bool
	// PenaltyHost is set when the host must be put on the rate limited list.
	PenaltyHost  string
	PenaltyAfter time.Duration
	// Deferred jobs go back to pending without counting an attempt,
	// due again at DeferUntil when it is set.
	Deferred   bool
	DeferUntil time.Time
	Reason     string
}

// ClassifyJobError decides whether a processing error is worth retrying.
// Malformed documents are not permanent, they retry up to the ceiling like transport errors.
func ClassifyJobError(err error) FailureDecision {
	d := FailureDecision{Reason: err.Error()}

	var penalty hostPenaltyError
	if errors.As(err, &penalty) && penalty.RateLimited() {
		d.PenaltyHost = penalty.PenaltyHost()
		d.PenaltyAfter = penalty.PenaltyDuration()
		return d
	}
	if errors.Is(err, domainerrors.ErrHostRateLimited) {
		d.Deferred = true
		var limited *HostLimitedError
		if errors.As(err, &limited) {
			d.DeferUntil = limited.RetryAfter
		}
		return d
	}

	switch {
	case errors.Is(err, domainerrors.ErrUnsupportedScheme),
		errors.Is(err, domainerrors.ErrInvalidJobTarget),
		errors.Is(err, domainerrors.ErrInvalidInput),
		errors.Is(err, domainerrors.ErrNotFound),
		errors.Is(err, domainerrors.ErrTokenNotFound):
		d.Permanent = true
	}
	return d
}

package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// JobStatus represents the state of a refresh job
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusQueued  JobStatus = "queued"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// IsTerminal reports whether the job will never be picked up again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

type jobTargetKind uint8

const (
	jobTargetNone jobTargetKind = iota
	jobTargetToken
	jobTargetContract
)

// JobTarget is what a job refreshes: exactly one token or exactly one contract.
// The zero value targets nothing and is rejected by the queue.
type JobTarget struct {
	kind jobTargetKind
	id   uuid.UUID
}

// TokenTarget targets a single token refresh.
func TokenTarget(tokenID uuid.UUID) JobTarget {
	return JobTarget{kind: jobTargetToken, id: tokenID}
}

// ContractTarget targets a contract import, which fans out into token jobs.
func ContractTarget(contractID uuid.UUID) JobTarget {
	return JobTarget{kind: jobTargetContract, id: contractID}
}

// TokenID returns the token id when the target is a token.
func (t JobTarget) TokenID() (uuid.UUID, bool) {
	return t.id, t.kind == jobTargetToken
}

// ContractID returns the contract id when the target is a contract.
func (t JobTarget) ContractID() (uuid.UUID, bool) {
	return t.id, t.kind == jobTargetContract
}

func (t JobTarget) IsZero() bool {
	return t.kind == jobTargetNone || t.id == uuid.Nil
}

func (t JobTarget) IsToken() bool    { return t.kind == jobTargetToken }
func (t JobTarget) IsContract() bool { return t.kind == jobTargetContract }

func (t JobTarget) String() string {
	switch t.kind {
	case jobTargetToken:
		return "token:" + t.id.String()
	case jobTargetContract:
		return "contract:" + t.id.String()
	default:
		return "none"
	}
}

// Job is a unit of refresh work.
type Job struct {
	ID            uuid.UUID   `json:"id"`
	Target        JobTarget   `json:"-"`
	Status        JobStatus   `json:"status"`
	RetryCount    int         `json:"retryCount"`
	InvalidReason null.String `json:"invalidReason"`
	CreatedAt     time.Time   `json:"createdAt"`
	// UpdatedAt doubles as the earliest instant a pending job may be claimed again.
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobFilter narrows job listings
type JobFilter struct {
	Status *JobStatus
}

// JobCandidate is a claimable job with the uri its token would be fetched from.
// TokenURI is empty for contract jobs.
type JobCandidate struct {
	Job      *Job
	TokenURI string
}

// CandidateCursor is the keyset position of a claim pass. Candidates at or
// before the cursor are not returned again. The zero value starts from the head.
type CandidateCursor struct {
	QueuedUpdatedAt  time.Time
	QueuedID         uuid.UUID
	PendingCreatedAt time.Time
	PendingID        uuid.UUID
}

// Advance moves the cursor past job. Call it before the job is claimed.
func (c *CandidateCursor) Advance(job *Job) {
	switch job.Status {
	case JobStatusQueued:
		c.QueuedUpdatedAt, c.QueuedID = job.UpdatedAt, job.ID
	case JobStatusPending:
		c.PendingCreatedAt, c.PendingID = job.CreatedAt, job.ID
	}
}

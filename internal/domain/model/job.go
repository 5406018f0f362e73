package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a quality transcoding job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusDone       JobStatus = "DONE"
	JobStatusFailed     JobStatus = "FAILED"
)

// Valid status transitions:
// PENDING -> PROCESSING -> DONE
//      ^          |
//      +----------+-> FAILED
var validJobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing, JobStatusFailed},
	JobStatusProcessing: {JobStatusDone, JobStatusFailed, JobStatusPending},
	JobStatusDone:       {},
	JobStatusFailed:     {},
}

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusDone, JobStatusFailed:
		return true
	default:
		return false
	}
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	allowed, exists := validJobTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

func (s JobStatus) String() string {
	return string(s)
}

var ErrInvalidTransition = errors.New("invalid status transition")

// QualityJob is a ledger entry tracking one transcoding run for a video.
type QualityJob struct {
	ID        uuid.UUID
	UserID    string
	VideoID   string
	Status    JobStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewQualityJob creates a PENDING job.
func NewQualityJob(user, videoID string) (*QualityJob, error) {
	if user == "" {
		return nil, ErrEmptyUser
	}
	if videoID == "" {
		return nil, ErrEmptyVideoID
	}

	now := time.Now()
	return &QualityJob{
		ID:        uuid.New(),
		UserID:    user,
		VideoID:   videoID,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TransitionTo attempts to change the job status.
func (j *QualityJob) TransitionTo(next JobStatus) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !j.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	if next == JobStatusProcessing {
		j.Attempts++
	}
	j.Status = next
	j.UpdatedAt = time.Now()
	return nil
}

// Fail moves the job to FAILED and records the cause.
func (j *QualityJob) Fail(cause error) error {
	if err := j.TransitionTo(JobStatusFailed); err != nil {
		return err
	}
	if cause != nil {
		j.LastError = cause.Error()
	}
	return nil
}

package model

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestJobStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"PENDING is valid", JobStatusPending, true},
		{"PROCESSING is valid", JobStatusProcessing, true},
		{"DONE is valid", JobStatusDone, true},
		{"FAILED is valid", JobStatusFailed, true},
		{"empty string is invalid", JobStatus(""), false},
		{"unknown status is invalid", JobStatus("UNKNOWN"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("JobStatus.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		current JobStatus
		next    JobStatus
		want    bool
	}{
		{"PENDING -> PROCESSING", JobStatusPending, JobStatusProcessing, true},
		{"PENDING -> FAILED", JobStatusPending, JobStatusFailed, true},
		{"PROCESSING -> DONE", JobStatusProcessing, JobStatusDone, true},
		{"PROCESSING -> FAILED", JobStatusProcessing, JobStatusFailed, true},
		{"PROCESSING -> PENDING (retry)", JobStatusProcessing, JobStatusPending, true},

		{"PENDING -> DONE (skip)", JobStatusPending, JobStatusDone, false},
		{"DONE -> PROCESSING (terminal)", JobStatusDone, JobStatusProcessing, false},
		{"FAILED -> PENDING (terminal)", JobStatusFailed, JobStatusPending, false},
		{"PENDING -> PENDING", JobStatusPending, JobStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.current.CanTransitionTo(tt.next); got != tt.want {
				t.Errorf("JobStatus.CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewQualityJob(t *testing.T) {
	job, err := NewQualityJob("@alice", "2024-01-01_intro")
	if err != nil {
		t.Fatalf("NewQualityJob() unexpected error = %v", err)
	}
	if job.ID == uuid.Nil {
		t.Error("NewQualityJob() should generate an ID")
	}
	if job.Status != JobStatusPending {
		t.Errorf("Status = %v, want %v", job.Status, JobStatusPending)
	}

	if _, err := NewQualityJob("", "v"); err != ErrEmptyUser {
		t.Errorf("NewQualityJob(empty user) error = %v", err)
	}
	if _, err := NewQualityJob("@alice", ""); err != ErrEmptyVideoID {
		t.Errorf("NewQualityJob(empty video) error = %v", err)
	}
}

func TestQualityJob_TransitionTo(t *testing.T) {
	job, _ := NewQualityJob("@alice", "v1")

	if err := job.TransitionTo(JobStatusProcessing); err != nil {
		t.Fatalf("TransitionTo(PROCESSING) error = %v", err)
	}
	if job.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", job.Attempts)
	}

	if err := job.TransitionTo(JobStatusPending); err != nil {
		t.Fatalf("TransitionTo(PENDING) error = %v", err)
	}
	if err := job.TransitionTo(JobStatusProcessing); err != nil {
		t.Fatalf("TransitionTo(PROCESSING) error = %v", err)
	}
	if job.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", job.Attempts)
	}

	if err := job.Fail(errors.New("ffmpeg exited 1")); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if job.LastError != "ffmpeg exited 1" {
		t.Errorf("LastError = %q", job.LastError)
	}
	if !job.Status.IsTerminal() {
		t.Error("FAILED should be terminal")
	}

	if err := job.TransitionTo(JobStatusDone); err != ErrInvalidTransition {
		t.Errorf("TransitionTo(DONE) from FAILED error = %v, want %v", err, ErrInvalidTransition)
	}
	if err := job.TransitionTo(JobStatus("BOGUS")); err != ErrInvalidTransition {
		t.Errorf("TransitionTo(BOGUS) error = %v, want %v", err, ErrInvalidTransition)
	}
}

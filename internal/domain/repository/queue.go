package repository

import (
	"context"

	"github.com/google/uuid"
)

// QualityTask represents a request to produce quality variants for one video.
type QualityTask struct {
	JobID      uuid.UUID `json:"job_id"`
	UserID     string    `json:"user_id"`
	VideoID    string    `json:"video_id"`
	Force      bool      `json:"force,omitempty"`
	RetryCount int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishQualityTask sends a transcoding task to the queue.
	PublishQualityTask(ctx context.Context, task QualityTask) error

	// ConsumeQualityTasks blocks, calling handler for each received task
	// until ctx is cancelled or the delivery channel closes.
	ConsumeQualityTasks(ctx context.Context, handler func(task QualityTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}

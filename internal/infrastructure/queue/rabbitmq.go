// Package queue carries quality tasks between the API and the worker over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/metrics"
)

const (
	messageType     = "vidshelf.quality_task"
	appID           = "vidshelf"
	headerAttempt   = "x-vidshelf-attempt"
	headerLastError = "x-vidshelf-last-error"
	maxErrorHeader  = 512
)

// RetryPolicy bounds how often a failing task is put back on the queue.
// The worker normally fails a job itself once its retries run out; the cap here
// only stops a task whose handler keeps erroring from cycling forever.
type RetryPolicy struct {
	MaxRedeliveries int
}

// exhausted reports whether task has already been redelivered as often as allowed.
// A non-positive limit disables the cap.
func (p RetryPolicy) exhausted(task repository.QualityTask) bool {
	return p.MaxRedeliveries > 0 && task.RetryCount >= p.MaxRedeliveries
}

// ClientConfig holds configuration for the RabbitMQ client.
type ClientConfig struct {
	URL   string
	Queue string
	// Exchange is empty for the default exchange, where RoutingKey equals Queue.
	Exchange   string
	RoutingKey string
	// Prefetch is 1 so one worker never hoards several transcodes.
	Prefetch int
	Retry    RetryPolicy
}

// DefaultClientConfig returns a ClientConfig for the quality_tasks queue.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:        url,
		Queue:      "quality_tasks",
		RoutingKey: "quality_tasks",
		Prefetch:   1,
		Retry:      RetryPolicy{MaxRedeliveries: 10},
	}
}

// amqpConnection abstracts amqp.Connection for testability.
type amqpConnection interface {
	Channel() (*amqp.Channel, error)
	Close() error
	IsClosed() bool
}

// amqpChannel abstracts amqp.Channel for testability.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// Client implements repository.MessageQueue using RabbitMQ.
type Client struct {
	conn    amqpConnection
	channel amqpChannel
	config  ClientConfig
	now     func() time.Time
}

var _ repository.MessageQueue = (*Client)(nil)

// NewClient dials the broker and declares the task queue so a bad URL or
// missing permission fails at startup.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	return newClientWithConnection(ctx, conn, cfg)
}

func newClientWithConnection(ctx context.Context, conn amqpConnection, cfg ClientConfig) (*Client, error) {
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	slog.Info("quality task queue ready", "queue", cfg.Queue, "prefetch", cfg.Prefetch,
		"max_redeliveries", cfg.Retry.MaxRedeliveries)

	return &Client{
		conn:    conn,
		channel: ch,
		config:  cfg,
		now:     time.Now,
	}, nil
}

// declareTopology sets QoS and declares the durable task queue. Both are idempotent.
func declareTopology(ch amqpChannel, cfg ClientConfig) error {
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}
	return nil
}

// taskAttrs are the log fields identifying a task.
func taskAttrs(task repository.QualityTask) []any {
	return []any{
		"job_id", task.JobID,
		"user_id", task.UserID,
		"video_id", task.VideoID,
		"attempt", task.RetryCount,
	}
}

// PublishQualityTask sends a quality task as a persistent message.
func (c *Client) PublishQualityTask(ctx context.Context, task repository.QualityTask) error {
	if err := c.publish(ctx, task, nil); err != nil {
		return err
	}
	slog.Debug("quality task published", taskAttrs(task)...)
	return nil
}

// publish encodes task with its attempt number. cause, when set, is the handler
// error that triggered a redelivery.
func (c *Client) publish(ctx context.Context, task repository.QualityTask, cause error) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	headers := amqp.Table{headerAttempt: int32(task.RetryCount)}
	if cause != nil {
		msg := cause.Error()
		if len(msg) > maxErrorHeader {
			msg = msg[:maxErrorHeader]
		}
		headers[headerLastError] = msg
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}

	err = c.channel.PublishWithContext(ctx, c.config.Exchange, c.routingKey(), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         messageType,
		AppId:        appID,
		MessageId:    task.JobID.String(),
		Timestamp:    now().UTC(),
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish task for %s/%s: %w", task.UserID, task.VideoID, err)
	}
	return nil
}

func (c *Client) routingKey() string {
	if c.config.RoutingKey != "" {
		return c.config.RoutingKey
	}
	return c.config.Queue
}

// ConsumeQualityTasks delivers tasks to handler until ctx is cancelled or the
// broker closes the channel. Deliveries are acknowledged manually:
//   - handler success: ack
//   - undecodable body or missing user/video: nack, not requeued
//   - handler error: republish with RetryCount+1, then ack the original
//   - handler error past the redelivery cap, or a failed republish: nack, not requeued
//
// Nack with requeue is never used because it would redeliver the same body with
// an unchanged RetryCount.
func (c *Client) ConsumeQualityTasks(ctx context.Context, handler func(task repository.QualityTask) error) error {
	msgs, err := c.channel.Consume(c.config.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("quality task delivery channel closed")
			}
			c.handleDelivery(ctx, msg, handler)
		}
	}
}

// deliveryOutcome is what happened to one delivery.
type deliveryOutcome int

const (
	outcomeDone deliveryOutcome = iota
	outcomeRedelivered
	outcomeDropped
)

func (c *Client) handleDelivery(ctx context.Context, msg amqp.Delivery, handler func(task repository.QualityTask) error) deliveryOutcome {
	var task repository.QualityTask
	if err := json.Unmarshal(msg.Body, &task); err != nil || task.UserID == "" || task.VideoID == "" {
		slog.Warn("discarding malformed quality task", "message_id", msg.MessageId, "error", err)
		_ = msg.Nack(false, false)
		return outcomeDropped
	}

	logger := slog.With(taskAttrs(task)...)

	handlerErr := handler(task)
	if handlerErr == nil {
		_ = msg.Ack(false)
		return outcomeDone
	}

	if c.config.Retry.exhausted(task) {
		logger.Error("quality task dropped after redelivery limit",
			"max_redeliveries", c.config.Retry.MaxRedeliveries, "error", handlerErr)
		metrics.QualityJobsTotal.WithLabelValues(metrics.QualityJobFailed).Inc()
		_ = msg.Nack(false, false)
		return outcomeDropped
	}

	task.RetryCount++
	if err := c.publish(ctx, task, handlerErr); err != nil {
		// The job row stays PROCESSING until someone looks at it.
		logger.Error("failed to redeliver quality task", "error", err, "cause", handlerErr)
		_ = msg.Nack(false, false)
		return outcomeDropped
	}

	logger.Warn("quality task redelivered", "next_attempt", task.RetryCount, "cause", handlerErr)
	metrics.QualityJobsTotal.WithLabelValues(metrics.QualityJobRetried).Inc()
	_ = msg.Ack(false)
	return outcomeRedelivered
}

// Healthy reports whether the broker connection is still open.
func (c *Client) Healthy() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// Close closes the channel then the connection, reporting both failures.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

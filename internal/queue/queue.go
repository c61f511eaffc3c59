// Package queue provides a Redis-backed delayed job queue used for
// asynchronous follow-up work such as recording message status updates
// after a bounce has been processed.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Job types understood by the gateway workers.
const (
	TypeEmailStatusUpdate = "email_status_update"
	TypeSuppressionSync   = "suppression_sync"
)

// ErrEmpty is returned by Dequeue when no job is ready to run.
var ErrEmpty = errors.New("queue: no job ready")

// Job is a unit of asynchronous work. Payload is an opaque JSON document
// owned by the producer.
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Priority    int             `json:"priority"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// Queue is the producer/consumer contract. Implementations must be safe
// for concurrent use.
type Queue interface {
	// Enqueue schedules a job to become ready after the given delay.
	// A zero delay makes it ready immediately.
	Enqueue(ctx context.Context, job *Job, delay time.Duration) error

	// Dequeue removes and returns the highest-priority ready job, or
	// ErrEmpty when nothing is due.
	Dequeue(ctx context.Context) (*Job, error)

	// Retry re-schedules a failed job with exponential backoff. When the
	// job has exhausted MaxAttempts it is moved to the dead-letter list
	// instead and ErrExhausted is returned.
	Retry(ctx context.Context, job *Job) error
}

// ErrExhausted is returned by Retry once a job has used all its attempts.
var ErrExhausted = errors.New("queue: job attempts exhausted")

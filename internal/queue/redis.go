package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueueKey  = "gateway:jobs"
	defaultDeadKey   = "gateway:jobs:dead"
	defaultBaseDelay = 5 * time.Second
	maxRetryDelay    = 5 * time.Minute
)

// popReadyScript atomically takes the lowest-scored member whose score is
// at or below the deadline. ZRANGEBYSCORE followed by a separate ZREM
// would let two consumers grab the same job.
var popReadyScript = redis.NewScript(`
	local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
	if #items == 0 then
		return false
	end
	redis.call('ZREM', KEYS[1], items[1])
	return items[1]
`)

// RedisQueue stores jobs in a sorted set scored by their ready time in
// unix milliseconds. Priority buys a fixed head start so urgent jobs sort
// ahead of equally-ready routine ones.
type RedisQueue struct {
	client   *redis.Client
	queueKey string
	deadKey  string
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:   client,
		queueKey: defaultQueueKey,
		deadKey:  defaultDeadKey,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *Job, delay time.Duration) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	score := q.score(time.Now().Add(delay), job.Priority)
	if err := q.client.ZAdd(ctx, q.queueKey, redis.Z{Score: score, Member: data}).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	deadline := float64(time.Now().UnixMilli())
	res, err := popReadyScript.Run(ctx, q.client, []string{q.queueKey}, deadline).Result()
	if err == redis.Nil {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}

	raw, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("dequeue job: unexpected reply type %T", res)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// A corrupt entry would otherwise wedge the head of the queue.
		log.Printf("[queue] dropping undecodable job: %v", err)
		return nil, ErrEmpty
	}
	return &job, nil
}

func (q *RedisQueue) Retry(ctx context.Context, job *Job) error {
	job.Attempts++
	if job.Attempts >= job.MaxAttempts {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal dead job: %w", err)
		}
		if err := q.client.RPush(ctx, q.deadKey, data).Err(); err != nil {
			return fmt.Errorf("dead-letter job %s: %w", job.ID, err)
		}
		log.Printf("[queue] job %s (%s) exhausted after %d attempts", job.ID, job.Type, job.Attempts)
		return ErrExhausted
	}

	delay := backoff(job.Attempts)
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	score := q.score(time.Now().Add(delay), job.Priority)
	if err := q.client.ZAdd(ctx, q.queueKey, redis.Z{Score: score, Member: data}).Err(); err != nil {
		return fmt.Errorf("retry job %s: %w", job.ID, err)
	}
	return nil
}

// DeadLetters returns up to limit jobs from the dead-letter list without
// removing them.
func (q *RedisQueue) DeadLetters(ctx context.Context, limit int64) ([]*Job, error) {
	raws, err := q.client.LRange(ctx, q.deadKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}
	jobs := make([]*Job, 0, len(raws))
	for _, raw := range raws {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

func (q *RedisQueue) score(readyAt time.Time, priority int) float64 {
	return float64(readyAt.UnixMilli() - int64(priority)*1000)
}

// backoff doubles per attempt starting at defaultBaseDelay, capped at
// maxRetryDelay.
func backoff(attempts int) time.Duration {
	d := defaultBaseDelay << (attempts - 1)
	if d > maxRetryDelay || d <= 0 {
		return maxRetryDelay
	}
	return d
}

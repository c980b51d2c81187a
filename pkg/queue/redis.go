package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"SigFlow/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Mode selects which halves of the queue a process runs.
type Mode int

const (
	ModeProducerConsumer Mode = iota
	ModeProducerOnly
	ModeConsumerOnly
)

// RedisQueue is a Redis-list backed delivery queue with delayed retries
// and a dead-letter list. Delivery is at-least-once.
type RedisQueue struct {
	log       *logger.Logger
	cfg       *Config
	rdb       *redis.Client
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	stopCh    chan struct{}
	mode      Mode
	ctx       context.Context
	cancel    context.CancelFunc
	keyPrefix string
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix overrides the Redis key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(q *RedisQueue) {
		q.keyPrefix = prefix
	}
}

// NewRedisQueue builds a queue on an existing Redis connection.
func NewRedisQueue(log *logger.Logger, cfg *Config, rdb *redis.Client, mode Mode, opts ...RedisQueueOption) *RedisQueue {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &RedisQueue{
		log:       log,
		cfg:       cfg,
		rdb:       rdb,
		jobs:      make(map[string]Job),
		stopCh:    make(chan struct{}),
		mode:      mode,
		ctx:       ctx,
		cancel:    cancel,
		keyPrefix: "sigflow:queue",
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// RegisterJobs registers each job in order.
func (q *RedisQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		q.RegisterJob(job)
	}
}

// RegisterJob binds a job to its message type. Duplicate registrations
// keep the first handler.
func (q *RedisQueue) RegisterJob(job Job) {
	if q.mode == ModeProducerOnly {
		q.log.Warn("job registration ignored in producer-only mode",
			logger.String("job", job.Name()))
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.Type()]; exists {
		q.log.Warn("job already registered", logger.String("job", job.Name()))
		return
	}

	q.jobs[job.Type()] = job
	q.log.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start verifies the Redis connection and launches workers.
func (q *RedisQueue) Start() error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	q.running = true
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.rdb.Ping(ctx).Err(); err != nil {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
		return fmt.Errorf("redis ping: %w", err)
	}

	if q.mode == ModeProducerOnly {
		q.log.Info("queue publisher started",
			logger.String("addr", q.rdb.Options().Addr))
		return nil
	}

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.wg.Add(1)
	go q.retryLoop()

	q.log.Info("queue started",
		logger.Int("workers", q.cfg.Workers),
		logger.String("addr", q.rdb.Options().Addr))
	return nil
}

// Stop drains workers, bounded by ctx.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.log.Info("stopping queue")
	q.cancel()
	if q.mode != ModeProducerOnly {
		close(q.stopCh)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		q.log.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("queue stop: %w", ctx.Err())
	case <-done:
		q.log.Info("queue stopped")
		return nil
	}
}

// Enqueue pushes one message. In consumer-capable modes the type must
// have a registered job so typos surface at the producer.
func (q *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.running {
		return fmt.Errorf("queue not running")
	}
	if q.mode != ModeProducerOnly {
		if _, exists := q.jobs[msgType]; !exists {
			return fmt.Errorf("no job registered for type: %s", msgType)
		}
	}

	msg := Message{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := q.rdb.LPush(ctx, q.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// PublishMessage implements Publisher.
func (q *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return q.Enqueue(ctx, msgType, payload)
}

func (q *RedisQueue) worker(id int) {
	defer q.wg.Done()
	q.log.Debug("queue worker started", logger.Int("worker", id))

	key := q.queueKey()
	for {
		select {
		case <-q.stopCh:
			return
		case <-q.ctx.Done():
			return
		default:
			q.popAndProcess(key)
		}
	}
}

func (q *RedisQueue) popAndProcess(key string) {
	ctx, cancel := context.WithTimeout(q.ctx, time.Second)
	defer cancel()

	result, err := q.rdb.BRPop(ctx, time.Second, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, context.Canceled) {
			return
		}
		q.log.Error("queue pop failed", logger.Error(err))
		time.Sleep(time.Second)
		return
	}
	if len(result) < 2 {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		q.log.Error("queue message unmarshal failed", logger.Error(err))
		return
	}
	q.dispatch(msg)
}

func (q *RedisQueue) dispatch(msg Message) {
	job, exists := q.jobs[msg.Type]
	if !exists {
		q.log.Error("no job for message",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	start := time.Now()
	err := job.Handle(q.ctx, rawPayload(msg.Payload, q.log))
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		q.log.Warn("message handling cancelled",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return
	}
	q.retryOrBury(msg, job, err)
}

// JSON round-trips a decoded map back to raw bytes so handlers can
// unmarshal into their own types.
func rawPayload(payload interface{}, log *logger.Logger) interface{} {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return payload
	}
	data, err := json.Marshal(m)
	if err != nil {
		log.Error("payload re-encode failed", logger.Error(err))
		return payload
	}
	return json.RawMessage(data)
}

func (q *RedisQueue) retryOrBury(msg Message, job Job, err error) {
	q.log.Error("message handling failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= q.cfg.RetryLimit {
		q.log.Error("retry limit reached, moving to dead letter",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()))
		q.bury(msg)
		return
	}

	msg.Attempts++
	q.scheduleRetry(msg, time.Now().Add(q.cfg.RetryDelay))
	q.log.Info("retry scheduled",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts))
}

func (q *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		q.log.Error("retry marshal failed", logger.Error(err))
		return
	}
	err = q.rdb.ZAdd(context.Background(), q.retryKey(), redis.Z{
		Score:  float64(at.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		q.log.Error("retry schedule failed", logger.Error(err))
	}
}

func (q *RedisQueue) bury(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		q.log.Error("dead letter marshal failed", logger.Error(err))
		return
	}
	if err := q.rdb.LPush(context.Background(), q.deadLetterKey(), data).Err(); err != nil {
		q.log.Error("dead letter push failed", logger.Error(err))
	}
}

// retryLoop periodically moves due retries back onto the main list.
func (q *RedisQueue) retryLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.requeueDueRetries()
		}
	}
}

func (q *RedisQueue) requeueDueRetries() {
	now := float64(time.Now().Unix())
	due, err := q.rdb.ZRangeByScoreWithScores(q.ctx, q.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatFloat(now, 'f', 0, 64),
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		q.log.Error("retry fetch failed", logger.Error(err))
		return
	}

	for _, z := range due {
		select {
		case <-q.ctx.Done():
			return
		default:
		}

		data := z.Member.(string)

		// Remove and requeue atomically so a crash cannot duplicate the
		// message within this hop.
		pipe := q.rdb.TxPipeline()
		pipe.ZRem(q.ctx, q.retryKey(), data)
		pipe.LPush(q.ctx, q.queueKey(), data)
		if _, err := pipe.Exec(q.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			q.log.Error("retry requeue failed", logger.Error(err))
		}
	}
}

func (q *RedisQueue) queueKey() string {
	return q.keyPrefix + ":messages"
}

func (q *RedisQueue) retryKey() string {
	return q.keyPrefix + ":retry"
}

func (q *RedisQueue) deadLetterKey() string {
	return q.keyPrefix + ":dlq"
}

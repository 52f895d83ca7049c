package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	defaultBaseDelay    = 5 * time.Second
	defaultQueueTimeout = 5 * time.Second
	delayedPollInterval = 10 * time.Second
)

// RedisQueue is a Redis backed task queue with delayed execution,
// retries and a dead letter queue for tasks that keep failing.
type RedisQueue struct {
	client          *redis.Client
	mainQueue       string
	delayedQueue    string
	processingQueue string
	retryManager    *RetryManager
	dlqHandler      DLQHandler
	config          *RedisQueueConfig
	mu              sync.RWMutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

// RedisQueueConfig contains configuration for RedisQueue.
type RedisQueueConfig struct {
	MainQueue       string
	DelayedQueue    string
	ProcessingQueue string
	DLQ             string

	MaxRetries   int
	BaseDelay    time.Duration
	QueueTimeout time.Duration
	EnableDLQ    bool
}

// DefaultRedisQueueConfig returns default configuration.
func DefaultRedisQueueConfig() *RedisQueueConfig {
	return &RedisQueueConfig{
		MainQueue:       "ticketflow:tasks",
		DelayedQueue:    "ticketflow:tasks:delayed",
		ProcessingQueue: "ticketflow:tasks:processing",
		DLQ:             "ticketflow:dlq",
		MaxRetries:      DefaultMaxRetries,
		BaseDelay:       defaultBaseDelay,
		QueueTimeout:    defaultQueueTimeout,
		EnableDLQ:       true,
	}
}

// NewRedisQueue creates a new RedisQueue on top of an existing client.
func NewRedisQueue(client *redis.Client, cfg *RedisQueueConfig) (*RedisQueue, error) {
	if cfg == nil {
		cfg = DefaultRedisQueueConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	var dlqHandler DLQHandler
	if cfg.EnableDLQ {
		dlqHandler = NewDefaultDLQHandler(client, cfg.DLQ, cfg.MainQueue)
	}

	q := &RedisQueue{
		client:          client,
		mainQueue:       cfg.MainQueue,
		delayedQueue:    cfg.DelayedQueue,
		processingQueue: cfg.ProcessingQueue,
		retryManager:    NewRetryManager(cfg.MaxRetries, cfg.BaseDelay),
		dlqHandler:      dlqHandler,
		config:          cfg,
		stopChan:        make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"main":    cfg.MainQueue,
		"delayed": cfg.DelayedQueue,
		"dlq":     cfg.DLQ,
	}).Info("RedisQueue initialized")

	return q, nil
}

// Publish sends a task to the queue. Tasks with ExecuteAt in the future
// go to the delayed sorted set, everything else to the main list.
func (r *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := r.validateTask(task); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !task.ExecuteAt.IsZero() && task.ExecuteAt.After(time.Now()) {
		score := float64(task.ExecuteAt.UnixNano()) / 1e9
		if err := r.client.ZAdd(ctx, r.delayedQueue, &redis.Z{
			Score:  score,
			Member: taskData,
		}).Err(); err != nil {
			return fmt.Errorf("failed to publish delayed task: %w", err)
		}
		logrus.Debugf("Task %s scheduled for %s", task.ID, task.ExecuteAt.Format(time.RFC3339))
		return nil
	}

	if err := r.client.LPush(ctx, r.mainQueue, taskData).Err(); err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	logrus.Debugf("Task %s published to main queue", task.ID)
	return nil
}

// PublishBatch sends multiple tasks in a single pipeline round trip.
func (r *RedisQueue) PublishBatch(ctx context.Context, tasks []*Task) error {
	if len(tasks) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pipe := r.client.Pipeline()
	for _, task := range tasks {
		if err := r.validateTask(task); err != nil {
			logrus.Warnf("Skipping invalid task in batch: %v", err)
			continue
		}
		taskData, err := json.Marshal(task)
		if err != nil {
			logrus.Warnf("Failed to marshal task in batch: %v", err)
			continue
		}
		if !task.ExecuteAt.IsZero() && task.ExecuteAt.After(time.Now()) {
			score := float64(task.ExecuteAt.UnixNano()) / 1e9
			pipe.ZAdd(ctx, r.delayedQueue, &redis.Z{Score: score, Member: taskData})
		} else {
			pipe.LPush(ctx, r.mainQueue, taskData)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish batch: %w", err)
	}
	logrus.Debugf("Published %d tasks in batch", len(tasks))
	return nil
}

// Subscribe starts consuming tasks with the given handler.
func (r *RedisQueue) Subscribe(ctx context.Context, handler func(context.Context, *Task) error) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.wg.Add(2)
	go r.processDelayedTasks(ctx)
	go r.processMainQueue(ctx, handler)

	logrus.Info("RedisQueue subscriber started")
	return nil
}

func (r *RedisQueue) processMainQueue(ctx context.Context, handler func(context.Context, *Task) error) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Main queue processor stopped by context")
			return
		case <-r.stopChan:
			logrus.Info("Main queue processor stopped")
			return
		default:
			if err := r.processNext(ctx, handler); err != nil {
				logrus.Errorf("Error processing task: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// processNext moves one task into the processing list, runs it through the
// retry loop, then removes it from the processing list whatever happened.
func (r *RedisQueue) processNext(ctx context.Context, handler func(context.Context, *Task) error) error {
	taskData, err := r.client.BRPopLPush(ctx, r.mainQueue, r.processingQueue, r.config.QueueTimeout).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to move task to processing queue: %w", err)
	}

	var task Task
	if err := json.Unmarshal([]byte(taskData), &task); err != nil {
		logrus.Errorf("Failed to unmarshal task: %v", err)
		r.moveToDLQ(taskData, fmt.Errorf("invalid task format: %w", err))
	} else if err := r.executeWithRetry(ctx, &task, handler); err != nil {
		logrus.Errorf("Task %s failed after %d attempts: %v", task.ID, task.Attempts, err)
		if r.dlqHandler != nil {
			r.dlqHandler.HandleFailedTask(&task, err)
		}
	} else {
		logrus.Debugf("Task %s completed", task.ID)
	}

	if err := r.client.LRem(ctx, r.processingQueue, 1, taskData).Err(); err != nil {
		logrus.Errorf("Failed to remove task from processing queue: %v", err)
	}
	return nil
}

func (r *RedisQueue) processDelayedTasks(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(delayedPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.moveReadyDelayedTasks(ctx); err != nil {
				logrus.Errorf("Failed to process delayed tasks: %v", err)
			}
		}
	}
}

func (r *RedisQueue) moveReadyDelayedTasks(ctx context.Context) error {
	now := float64(time.Now().UnixNano()) / 1e9

	tasks, err := r.client.ZRangeByScore(ctx, r.delayedQueue, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get delayed tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, taskData := range tasks {
		pipe.LPush(ctx, r.mainQueue, taskData)
	}
	pipe.ZRemRangeByScore(ctx, r.delayedQueue, "0", fmt.Sprintf("%f", now))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to move delayed tasks: %w", err)
	}

	logrus.Debugf("Moved %d delayed tasks to main queue", len(tasks))
	return nil
}

func (r *RedisQueue) executeWithRetry(ctx context.Context, task *Task, handler func(context.Context, *Task) error) error {
	for {
		task.Attempts++

		err := handler(ctx, task)
		if err == nil {
			return nil
		}

		shouldRetry, delay := r.retryManager.ShouldRetry(task, err)
		if !shouldRetry {
			return err
		}

		logrus.Warnf("Task %s failed (attempt %d/%d), retrying in %v: %v",
			task.ID, task.Attempts, task.MaxRetries, delay, err)

		jitteredDelay := delay + time.Duration(rand.Int63n(int64(delay/time.Millisecond)))*time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitteredDelay):
		}
	}
}

func (r *RedisQueue) moveToDLQ(taskData string, err error) {
	if !r.config.EnableDLQ || r.dlqHandler == nil {
		return
	}

	var task Task
	if jsonErr := json.Unmarshal([]byte(taskData), &task); jsonErr != nil {
		// Raw payload kept so the failure can still be inspected.
		r.dlqHandler.HandleFailedTask(&Task{
			ID:        fmt.Sprintf("corrupted_%d", time.Now().UnixNano()),
			Type:      "corrupted",
			Data:      map[string]interface{}{"raw_data": taskData},
			CreatedAt: time.Now(),
		}, fmt.Errorf("corrupted task: %w", jsonErr))
		return
	}
	r.dlqHandler.HandleFailedTask(&task, err)
}

func (r *RedisQueue) validateTask(task *Task) error {
	if task.ID == "" {
		task.ID = generateTaskID()
	}
	if task.Type == "" {
		return fmt.Errorf("task type is required")
	}
	if task.Data == nil {
		task.Data = make(map[string]interface{})
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = r.config.MaxRetries
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.ExecuteAt.IsZero() {
		task.ExecuteAt = time.Now()
	}
	return nil
}

// Stats returns the current length of each queue.
func (r *RedisQueue) Stats(ctx context.Context) (*QueueStats, error) {
	pipe := r.client.Pipeline()

	mainLen := pipe.LLen(ctx, r.mainQueue)
	delayedLen := pipe.ZCard(ctx, r.delayedQueue)
	processingLen := pipe.LLen(ctx, r.processingQueue)
	dlqLen := pipe.ZCard(ctx, r.config.DLQ)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	return &QueueStats{
		MainQueue:       mainLen.Val(),
		DelayedQueue:    delayedLen.Val(),
		ProcessingQueue: processingLen.Val(),
		DLQ:             dlqLen.Val(),
		Timestamp:       time.Now(),
	}, nil
}

// Close stops the background processors.
func (r *RedisQueue) Close() error {
	close(r.stopChan)
	r.wg.Wait()
	logrus.Info("RedisQueue closed")
	return nil
}

// QueueStats contains statistics about queue state.
type QueueStats struct {
	MainQueue       int64     `json:"main_queue"`
	DelayedQueue    int64     `json:"delayed_queue"`
	ProcessingQueue int64     `json:"processing_queue"`
	DLQ             int64     `json:"dlq"`
	Timestamp       time.Time `json:"timestamp"`
}

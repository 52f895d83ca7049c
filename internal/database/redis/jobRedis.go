package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mcp-events/ticketflow/internal/entity"
)

const (
	jobKeyPrefix = "ticketflow:notify_job:"
	activeJobKey = "ticketflow:notify_job:active"
	jobRetention = 24 * time.Hour
)

// JobStore tracks broadcast job progress in Redis hashes. At most one job
// is active at a time: starting a new one supersedes the previous job by
// flipping its status to cancelled.
type JobStore struct {
	client *redis.Client
}

func NewJobStore(client *redis.Client) *JobStore {
	return &JobStore{client: client}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

// Start registers a new running job and cancels whatever job was active.
func (s *JobStore) Start(ctx context.Context, job *entity.NotifyJob) error {
	previous, err := s.client.Get(ctx, activeJobKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("get active job: %w", err)
	}
	if previous != "" && previous != job.ID {
		if err := s.client.HSet(ctx, jobKey(previous), "status", entity.JobStatusCancelled).Err(); err != nil {
			return fmt.Errorf("supersede job %s: %w", previous, err)
		}
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, jobKey(job.ID),
		"event_id", job.EventID,
		"message", job.Message,
		"status", entity.JobStatusRunning,
		"total", job.Total,
		"sent", 0,
		"failed", 0,
		"created_at", job.CreatedAt.Format(time.RFC3339),
	)
	pipe.Expire(ctx, jobKey(job.ID), jobRetention)
	pipe.Set(ctx, activeJobKey, job.ID, jobRetention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	return nil
}

// Get returns the current snapshot of a job.
func (s *JobStore) Get(ctx context.Context, jobID string) (*entity.NotifyJob, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if len(fields) == 0 {
		return nil, entity.ErrJobNotFound
	}

	job := &entity.NotifyJob{
		ID:      jobID,
		EventID: fields["event_id"],
		Message: fields["message"],
		Status:  fields["status"],
	}
	job.Total, _ = strconv.Atoi(fields["total"])
	job.Sent, _ = strconv.Atoi(fields["sent"])
	job.Failed, _ = strconv.Atoi(fields["failed"])
	if ts, err := time.Parse(time.RFC3339, fields["created_at"]); err == nil {
		job.CreatedAt = ts
	}
	return job, nil
}

// Status returns just the status field of a job.
func (s *JobStore) Status(ctx context.Context, jobID string) (string, error) {
	status, err := s.client.HGet(ctx, jobKey(jobID), "status").Result()
	if err == redis.Nil {
		return "", entity.ErrJobNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get job status: %w", err)
	}
	return status, nil
}

// RecordSent bumps the sent counter and completes the job when every
// recipient has been accounted for.
func (s *JobStore) RecordSent(ctx context.Context, jobID string) error {
	return s.record(ctx, jobID, "sent")
}

// RecordFailed bumps the failed counter and completes the job when every
// recipient has been accounted for.
func (s *JobStore) RecordFailed(ctx context.Context, jobID string) error {
	return s.record(ctx, jobID, "failed")
}

func (s *JobStore) record(ctx context.Context, jobID, field string) error {
	if err := s.client.HIncrBy(ctx, jobKey(jobID), field, 1).Err(); err != nil {
		return fmt.Errorf("increment %s: %w", field, err)
	}

	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == entity.JobStatusRunning && job.Sent+job.Failed >= job.Total {
		if err := s.client.HSet(ctx, jobKey(jobID), "status", entity.JobStatusCompleted).Err(); err != nil {
			return fmt.Errorf("complete job: %w", err)
		}
	}
	return nil
}

// Cancel flips a running job to cancelled. Pending fanout tasks check the
// status before sending and drop themselves.
func (s *JobStore) Cancel(ctx context.Context, jobID string) error {
	status, err := s.Status(ctx, jobID)
	if err != nil {
		return err
	}
	if status != entity.JobStatusRunning {
		return nil
	}
	if err := s.client.HSet(ctx, jobKey(jobID), "status", entity.JobStatusCancelled).Err(); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return nil
}

// Active returns the id of the currently active job, empty when none.
func (s *JobStore) Active(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, activeJobKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active job: %w", err)
	}
	return id, nil
}

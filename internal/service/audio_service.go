package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/obdsuperstar/api/internal/model"
)

const TaskTypeAudio = "audio:render"

// AudioService manages async audio-render jobs: Redis for the job records,
// asynq for execution.
type AudioService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	retention   time.Duration
}

func NewAudioService(redisClient *redis.Client, asynqClient *asynq.Client, retention time.Duration) *AudioService {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &AudioService{
		redis:       redisClient,
		asynqClient: asynqClient,
		retention:   retention,
	}
}

// StartAudio queues a new audio render job and returns its handle.
func (s *AudioService) StartAudio(ctx context.Context, req *model.AudioStartRequest) (*model.AudioStartResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	payload := &model.AudioJobPayload{
		SessionID:    req.SessionID,
		Scripts:      req.Scripts,
		VoiceChoices: req.VoiceChoices,
		Selection:    req.Selection,
		VariantID:    req.VariantID,
		TTSEngine:    req.TTSEngine,
		Country:      req.Country,
		Language:     req.Language,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeAudio,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		Payload:   payloadBytes,
	}
	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newAudioTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("audio"),
		asynq.MaxRetry(3),
		asynq.Retention(s.retention),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.AudioStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusPending,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the poll payload; when the job is done the manifest is
// included so the client needs no second round trip.
func (s *AudioService) GetStatus(ctx context.Context, jobID string) (*model.AudioStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resp := &model.AudioStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
	}
	if job.Status == model.JobStatusDone && len(job.Result) > 0 {
		var manifest model.AudioManifest
		if err := json.Unmarshal(job.Result, &manifest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		resp.Result = &manifest
	}
	return resp, nil
}

// GetResult returns the manifest of a finished job.
func (s *AudioService) GetResult(ctx context.Context, jobID string) (*model.AudioManifest, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusDone {
		return nil, fmt.Errorf("job not completed")
	}

	var manifest model.AudioManifest
	if err := json.Unmarshal(job.Result, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &manifest, nil
}

// UpdateJobProgress is called by the worker between render steps.
func (s *AudioService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStep = step
	if job.Status == model.JobStatusPending {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}
	return s.saveJob(ctx, job)
}

// CompleteJob stores the manifest and marks the job done.
func (s *AudioService) CompleteJob(ctx context.Context, jobID string, manifest *model.AudioManifest) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	job.Status = model.JobStatusDone
	job.Progress = 100
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now
	return s.saveJob(ctx, job)
}

// FailJob marks the job failed with the given reason.
func (s *AudioService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusError
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now
	return s.saveJob(ctx, job)
}

func (s *AudioService) saveJob(ctx context.Context, job *model.Job) error {
	type record struct {
		model.Job
		Payload []byte `json:"payload,omitempty"`
		Result  []byte `json:"result,omitempty"`
	}
	data, err := json.Marshal(record{Job: *job, Payload: job.Payload, Result: job.Result})
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, s.retention).Err()
}

func (s *AudioService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job not found")
		}
		return nil, err
	}

	var rec struct {
		model.Job
		Payload []byte `json:"payload,omitempty"`
		Result  []byte `json:"result,omitempty"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	job := rec.Job
	job.Payload = rec.Payload
	job.Result = rec.Result
	return &job, nil
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func newAudioTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]any{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAudio, data), nil
}

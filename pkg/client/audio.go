package client

import (
	"context"
	"fmt"
	"time"

	"github.com/obdsuperstar/api/internal/model"
)

// PollPolicy bounds an audio polling loop: one status fetch per interval, up
// to MaxAttempts fetches before giving up.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollPolicy matches the audio worker's pacing: two minutes of
// two-second polls.
var DefaultPollPolicy = PollPolicy{Interval: 2 * time.Second, MaxAttempts: 60}

// JobError is an audio job that the server reports as failed. It is distinct
// from a transient polling failure, which the poller retries.
type JobError struct {
	JobID   string
	Message string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("audio job %s failed: %s", e.JobID, e.Message)
}

// AudioPoller creates audio render jobs and polls them to completion.
type AudioPoller struct {
	api    *API
	policy PollPolicy
}

// NewAudioPoller uses DefaultPollPolicy unless overridden via WithPolicy.
func NewAudioPoller(api *API) *AudioPoller {
	return &AudioPoller{api: api, policy: DefaultPollPolicy}
}

// WithPolicy returns a poller with a different polling policy.
func (p *AudioPoller) WithPolicy(policy PollPolicy) *AudioPoller {
	return &AudioPoller{api: p.api, policy: policy}
}

// CreateAndPoll queues a render job and blocks until it finishes, fails, or
// the polling attempts are exhausted.
func (p *AudioPoller) CreateAndPoll(ctx context.Context, req *model.AudioStartRequest) (*model.AudioManifest, error) {
	start, err := p.api.StartAudio(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Poll(ctx, start.JobID)
}

// Poll fetches job status once per interval until the job is terminal. A
// failed status fetch counts as an attempt and is retried; the job may well
// still be running. An explicit error status from the server stops the loop
// immediately. Exhausting MaxAttempts returns a timeout error.
func (p *AudioPoller) Poll(ctx context.Context, jobID string) (*model.AudioManifest, error) {
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		status, err := p.api.AudioStatus(ctx, jobID)
		if err == nil {
			switch status.Status {
			case model.JobStatusDone:
				return status.Result, nil
			case model.JobStatusError:
				msg := "unknown error"
				if status.Error != nil {
					msg = *status.Error
				}
				return nil, &JobError{JobID: jobID, Message: msg}
			}
		}

		if attempt == p.policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.policy.Interval):
		}
	}
	return nil, fmt.Errorf("audio job %s timed out after %d attempts", jobID, p.policy.MaxAttempts)
}

// MergeAudio replaces the Audio subtree of a result with a freshly rendered
// manifest. Everything else in the result is left untouched. The merge is
// refused when either side is missing or the manifest was rendered for a
// different session, which can happen when a stale job finishes after the
// user started a new run.
func MergeAudio(result *model.CampaignResult, manifest *model.AudioManifest) bool {
	if result == nil || manifest == nil {
		return false
	}
	if manifest.SessionID != "" && manifest.SessionID != result.SessionID {
		return false
	}
	result.Audio = manifest
	return true
}

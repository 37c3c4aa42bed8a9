package client

import (
	"context"
	"errors"
	"sync"

	"github.com/obdsuperstar/api/internal/model"
	"github.com/obdsuperstar/api/pkg/pipeline"
)

// SessionEvents are the callbacks a UI wires into a Session. All of them are
// optional and are invoked without the session lock held.
type SessionEvents struct {
	// OnSteps fires whenever the per-stage view changes.
	OnSteps func(steps pipeline.Steps)
	// OnDone fires once with the full result when a run finishes.
	OnDone func(result *model.CampaignResult)
	// OnError fires once when a run fails; partial may carry whatever the
	// pipeline produced before the failure.
	OnError func(message string, partial *model.CampaignResult)
	// OnNotice reports non-fatal conditions such as a dropped connection.
	OnNotice func(message string)
}

// Session drives one pipeline run end to end: it starts runs, follows the
// progress stream, folds frames into step state, persists the run handle so
// an interrupted session can be resumed, and clears the handle exactly once
// when the run reaches a terminal state.
type Session struct {
	api      *API
	store    RunStore
	template pipeline.Template
	events   SessionEvents

	mu       sync.Mutex
	jobID    string
	steps    pipeline.Steps
	result   *model.CampaignResult
	errMsg   string
	finished bool
	stream   *ProgressStream
}

// NewSession creates a session over the default stage template.
func NewSession(api *API, store RunStore, events SessionEvents) *Session {
	tmpl := pipeline.DefaultTemplate()
	return &Session{
		api:      api,
		store:    store,
		template: tmpl,
		events:   events,
		steps:    pipeline.NewSteps(tmpl),
	}
}

// Start validates the request locally, submits it, persists the new run
// handle, and opens the progress stream. Any previous stream is closed; the
// step view is reset to all pending before the first frame arrives.
func (s *Session) Start(ctx context.Context, req *model.GenerateRequest) error {
	if req.ProductText == "" || req.Country == "" || req.Telco == "" {
		return errors.New("product text, country and telco are required")
	}

	resp, err := s.api.StartRun(ctx, req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.jobID = resp.JobID
	s.steps = pipeline.NewSteps(s.template)
	s.result = nil
	s.errMsg = ""
	s.finished = false
	steps := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.store.Set(resp.JobID); err != nil {
		return err
	}
	s.emitSteps(steps)
	s.openStream(ctx, resp.JobID)
	return nil
}

// Resume restores a previous run from the persisted handle. It returns false
// when there is nothing to resume: no handle, or a handle whose status can no
// longer be fetched, in which case the handle is cleared silently and the
// session starts fresh. A still-running run replays its buffered frames and
// reattaches the stream; an already-finished run is restored to its terminal
// state without opening a stream.
func (s *Session) Resume(ctx context.Context) bool {
	jobID, ok := s.store.Get()
	if !ok {
		return false
	}

	status, err := s.api.RunStatus(ctx, jobID)
	if err != nil {
		s.store.Clear()
		return false
	}

	s.mu.Lock()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.jobID = jobID
	s.steps = pipeline.Replay(pipeline.NewSteps(s.template), status.Progress)
	s.result = status.Result
	s.errMsg = status.Error
	s.finished = status.Status != model.RunRunning
	steps := s.snapshotLocked()
	s.mu.Unlock()

	s.emitSteps(steps)

	switch status.Status {
	case model.RunDone:
		s.store.Clear()
		if s.events.OnDone != nil {
			s.events.OnDone(status.Result)
		}
	case model.RunError:
		s.store.Clear()
		if s.events.OnError != nil {
			s.events.OnError(status.Error, status.Result)
		}
	default:
		s.openStream(ctx, jobID)
	}
	return true
}

// Steps returns a copy of the current per-stage view.
func (s *Session) Steps() pipeline.Steps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Result returns the run result once finished, nil before.
func (s *Session) Result() *model.CampaignResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the failure message of a failed run, empty otherwise.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// JobID returns the id of the run this session is tracking.
func (s *Session) JobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID
}

// Finished reports whether the tracked run reached a terminal state.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// MergeAudio folds an audio job's manifest into the held result. The merge is
// discarded when the manifest belongs to a different session.
func (s *Session) MergeAudio(manifest *model.AudioManifest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MergeAudio(s.result, manifest)
}

// Close tears down the stream without touching the persisted handle, so the
// run can still be resumed later.
func (s *Session) Close() {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()
	if stream != nil {
		stream.Close()
	}
}

func (s *Session) openStream(ctx context.Context, jobID string) {
	stream, err := DialProgress(ctx, s.api.WebSocketURL("/ws/progress/"+jobID))
	if err != nil {
		s.notice("Could not open the progress stream. The run continues on the server; resume to catch up.")
		return
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	go stream.Run(s.handleFrame, func(error) {
		s.mu.Lock()
		finished := s.finished
		s.mu.Unlock()
		if !finished {
			s.notice("Connection lost. The run continues on the server; resume to catch up.")
		}
	})
}

// handleFrame folds one frame into session state. Terminal frames are applied
// exactly once: a duplicate after the run already finished is a no-op.
func (s *Session) handleFrame(frame model.ProgressFrame) bool {
	if frame.Terminal() {
		s.mu.Lock()
		if s.finished {
			s.mu.Unlock()
			return true
		}
		s.finished = true
		if frame.Status == model.StageDone {
			s.result = frame.Result
		} else {
			s.errMsg = frame.Message
			// A failed run may still carry whatever the pipeline produced.
			if frame.Result != nil {
				s.result = frame.Result
			}
		}
		result := s.result
		errMsg := s.errMsg
		s.mu.Unlock()

		s.store.Clear()
		if frame.Status == model.StageDone {
			if s.events.OnDone != nil {
				s.events.OnDone(result)
			}
		} else if s.events.OnError != nil {
			s.events.OnError(errMsg, result)
		}
		return true
	}

	s.mu.Lock()
	next, changed := pipeline.Apply(s.steps, frame)
	if changed {
		s.steps = next
	}
	steps := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.emitSteps(steps)
	}
	return false
}

func (s *Session) snapshotLocked() pipeline.Steps {
	out := make(pipeline.Steps, len(s.steps))
	copy(out, s.steps)
	return out
}

func (s *Session) emitSteps(steps pipeline.Steps) {
	if s.events.OnSteps != nil {
		s.events.OnSteps(steps)
	}
}

func (s *Session) notice(msg string) {
	if s.events.OnNotice != nil {
		s.events.OnNotice(msg)
	}
}

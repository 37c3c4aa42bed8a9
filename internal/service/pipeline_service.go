package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/obdsuperstar/api/internal/model"
)

// runState tracks one running or finished pipeline, including every progress
// frame emitted so far so that late subscribers and resuming clients can
// catch up.
type runState struct {
	jobID       string
	status      model.RunStatus
	frames      []model.ProgressFrame
	result      *model.CampaignResult
	errMsg      string
	subscribers map[chan model.ProgressFrame]bool
}

// PipelineService owns the in-memory run registry and executes the
// orchestrator in background goroutines. Run state is ephemeral by contract:
// a restarted server simply no longer knows old runs, and resuming clients
// treat that as an expired handle.
type PipelineService struct {
	mu   sync.RWMutex
	runs map[string]*runState
	orch Orchestrator
}

func NewPipelineService(orch Orchestrator) *PipelineService {
	return &PipelineService{
		runs: make(map[string]*runState),
		orch: orch,
	}
}

// StartRun registers a new run and launches the pipeline in the background.
func (s *PipelineService) StartRun(ctx context.Context, req *model.GenerateRequest) (*model.GenerateStartResponse, error) {
	jobID := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]

	state := &runState{
		jobID:       jobID,
		status:      model.RunRunning,
		subscribers: make(map[chan model.ProgressFrame]bool),
	}

	s.mu.Lock()
	s.runs[jobID] = state
	s.mu.Unlock()

	go s.runPipeline(jobID, req)

	log.Printf("Pipeline started in background: jobId=%s", jobID)
	return &model.GenerateStartResponse{JobID: jobID, Status: string(model.RunRunning)}, nil
}

func (s *PipelineService) runPipeline(jobID string, req *model.GenerateRequest) {
	progress := func(frame model.ProgressFrame) {
		s.publish(jobID, frame)
	}

	result, err := s.orch.Run(context.Background(), req, jobID, progress)

	if err != nil {
		log.Printf("Pipeline %s failed: %v", jobID, err)
		s.finish(jobID, model.RunError, nil, err.Error())
		return
	}
	s.finish(jobID, model.RunDone, result, "")
}

// publish appends a stage frame to the run's buffer and fans it out to live
// subscribers.
func (s *PipelineService) publish(jobID string, frame model.ProgressFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.runs[jobID]
	if !ok || state.status != model.RunRunning {
		return
	}
	state.frames = append(state.frames, frame)
	for ch := range state.subscribers {
		select {
		case ch <- frame:
		default:
			// Slow consumer: drop it, the buffered log remains authoritative.
			delete(state.subscribers, ch)
			close(ch)
		}
	}
}

// finish records the terminal state, emits the single terminal frame and
// closes all subscriber channels.
func (s *PipelineService) finish(jobID string, status model.RunStatus, result *model.CampaignResult, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.runs[jobID]
	if !ok || state.status != model.RunRunning {
		return
	}
	state.status = status
	state.result = result
	state.errMsg = errMsg

	terminal := model.ProgressFrame{
		Agent:     model.AgentPipeline,
		SessionID: jobID,
		Result:    result,
	}
	if status == model.RunDone {
		terminal.Status = model.StageDone
		terminal.Message = "Pipeline complete"
	} else {
		terminal.Status = model.StageError
		terminal.Message = errMsg
	}
	state.frames = append(state.frames, terminal)

	for ch := range state.subscribers {
		select {
		case ch <- terminal:
		default:
		}
		delete(state.subscribers, ch)
		close(ch)
	}
	log.Printf("Pipeline %s finished: %s", jobID, status)
}

// GetStatus returns the run's current status with the full buffered frame
// log, the payload a resuming client replays.
func (s *PipelineService) GetStatus(jobID string) (*model.RunStatusResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.runs[jobID]
	if !ok {
		return nil, fmt.Errorf("run not found")
	}

	frames := make([]model.ProgressFrame, len(state.frames))
	copy(frames, state.frames)

	return &model.RunStatusResponse{
		JobID:    jobID,
		Status:   state.status,
		Progress: frames,
		Result:   state.result,
		Error:    state.errMsg,
	}, nil
}

// ResultBySession returns the final result of a completed run, used when a
// result is saved as a campaign.
func (s *PipelineService) ResultBySession(sessionID string) (*model.CampaignResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.runs[sessionID]
	if !ok || state.result == nil {
		return nil, fmt.Errorf("session not found")
	}
	return state.result, nil
}

// Subscribe atomically snapshots the buffered frames and, when the run is
// still live, attaches a subscriber channel for subsequent frames. The
// returned cancel func is safe to call after the run finished.
func (s *PipelineService) Subscribe(jobID string) (frames []model.ProgressFrame, live <-chan model.ProgressFrame, cancel func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.runs[jobID]
	if !ok {
		return nil, nil, nil, fmt.Errorf("run not found")
	}

	frames = make([]model.ProgressFrame, len(state.frames))
	copy(frames, state.frames)

	if state.status != model.RunRunning {
		return frames, nil, func() {}, nil
	}

	ch := make(chan model.ProgressFrame, 64)
	state.subscribers[ch] = true

	cancel = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if st, ok := s.runs[jobID]; ok {
			if st.subscribers[ch] {
				delete(st.subscribers, ch)
				close(ch)
			}
		}
	}
	return frames, ch, cancel, nil
}

package model

// Stage statuses carried by progress frames.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageStarted   StageStatus = "started"
	StageCompleted StageStatus = "completed"
	StageError     StageStatus = "error"
	// StageDone is only valid on the terminal Pipeline frame.
	StageDone StageStatus = "done"
)

// AgentPipeline is the agent key of the terminal frame that ends a run.
const AgentPipeline = "Pipeline"

// ProgressFrame is one message on a run's progress stream. Stage frames carry
// Agent/Status/Message/Data; the single terminal frame uses Agent="Pipeline"
// with status done or error and, on done, the full result.
type ProgressFrame struct {
	Agent     string          `json:"agent"`
	Status    StageStatus     `json:"status"`
	Message   string          `json:"message,omitempty"`
	Data      map[string]any  `json:"data,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Result    *CampaignResult `json:"result,omitempty"`
}

// Terminal reports whether the frame ends the logical run.
func (f *ProgressFrame) Terminal() bool {
	return f.Agent == AgentPipeline && (f.Status == StageDone || f.Status == StageError)
}

// Run statuses reported by the status endpoint.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunError   RunStatus = "error"
)

// RunStatusResponse is the resumption payload: current status plus every
// progress frame buffered since the run started.
type RunStatusResponse struct {
	JobID    string          `json:"jobId"`
	Status   RunStatus       `json:"status"`
	Progress []ProgressFrame `json:"progress"`
	Result   *CampaignResult `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

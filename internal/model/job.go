package model

import "time"

// JobStatus is the lifecycle of an async audio job.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Terminal reports whether the status ends the polling loop.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Job is a background audio-render job record.
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Payload     []byte     `json:"-"`
	Result      []byte     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

const JobTypeAudio = "audio"

// AudioStartRequest creates an audio render job. When VariantID is set only
// that variant is re-rendered; otherwise the whole batch is produced.
type AudioStartRequest struct {
	SessionID    string         `json:"sessionId" validate:"required"`
	Scripts      ScriptSet      `json:"scripts" validate:"required"`
	VoiceChoices map[int]int    `json:"voiceChoices,omitempty"`
	Selection    VoiceSelection `json:"voiceSelection"`
	VariantID    *int           `json:"variantId,omitempty"`
	TTSEngine    string         `json:"ttsEngine,omitempty"`
	Country      string         `json:"country,omitempty"`
	Language     string         `json:"language,omitempty"`
}

// AudioJobPayload is the queued task body.
type AudioJobPayload struct {
	SessionID    string         `json:"sessionId"`
	Scripts      ScriptSet      `json:"scripts"`
	VoiceChoices map[int]int    `json:"voiceChoices,omitempty"`
	Selection    VoiceSelection `json:"voiceSelection"`
	VariantID    *int           `json:"variantId,omitempty"`
	TTSEngine    string         `json:"ttsEngine,omitempty"`
	Country      string         `json:"country,omitempty"`
	Language     string         `json:"language,omitempty"`
}

// AudioFile is one rendered recording.
type AudioFile struct {
	VariantID     int     `json:"variantId"`
	Type          string  `json:"type"`
	FileName      string  `json:"fileName"`
	FileURL       string  `json:"fileUrl"`
	FileSizeBytes int64   `json:"fileSizeBytes"`
	DurationSecs  float64 `json:"durationSeconds"`
	VoiceIndex    int     `json:"voiceIndex,omitempty"`
}

// AudioSummary aggregates a render batch.
type AudioSummary struct {
	TotalGenerated int `json:"totalGenerated"`
	TotalFailed    int `json:"totalFailed"`
}

// AudioManifest is the result of an audio job; it is the only subtree of
// CampaignResult an audio job may replace.
type AudioManifest struct {
	SessionID  string       `json:"sessionId"`
	TTSEngine  string       `json:"ttsEngine"`
	AudioFiles []AudioFile  `json:"audioFiles"`
	Summary    AudioSummary `json:"summary"`
}

// AudioStartResponse acknowledges a queued job.
type AudioStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// AudioStatusResponse is the poll payload.
type AudioStatusResponse struct {
	JobID       string         `json:"jobId"`
	Status      JobStatus      `json:"status"`
	Progress    int            `json:"progress"`
	CurrentStep string         `json:"currentStep,omitempty"`
	Error       *string        `json:"error,omitempty"`
	Result      *AudioManifest `json:"result,omitempty"`
}

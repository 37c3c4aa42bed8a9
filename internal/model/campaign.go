package model

import "time"

// GenerateRequest starts a new pipeline run.
type GenerateRequest struct {
	ProductText   string `json:"productText" validate:"required"`
	Country       string `json:"country" validate:"required"`
	Telco         string `json:"telco" validate:"required"`
	Language      string `json:"language,omitempty"`
	PromotionType string `json:"promotionType,omitempty" validate:"omitempty,oneof=obd_standard sms_followup"`
	TTSEngine     string `json:"ttsEngine,omitempty" validate:"omitempty,oneof=auto murf elevenlabs edge-tts"`
}

// GenerateStartResponse is returned immediately after a run is accepted.
type GenerateStartResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// Script is one OBD promo script variant.
type Script struct {
	VariantID     int    `json:"variantId"`
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Hook          string `json:"hook"`
	Body          string `json:"body"`
	CTA           string `json:"cta"`
	FullScript    string `json:"fullScript"`
	Fallback1     string `json:"fallback1,omitempty"`
	Fallback2     string `json:"fallback2,omitempty"`
	PoliteClosure string `json:"politeClosure,omitempty"`
	WordCount     int    `json:"wordCount"`
	EstimatedSecs int    `json:"estimatedDurationSeconds"`
}

// ScriptSet is a batch of script variants produced by one writer pass.
type ScriptSet struct {
	Scripts  []Script `json:"scripts"`
	Language string   `json:"language,omitempty"`
}

// Voice describes a TTS voice candidate.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender,omitempty"`
	Accent   string `json:"accent,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// VoiceSelection is the voice-selector stage output.
type VoiceSelection struct {
	SelectedVoice Voice   `json:"selectedVoice"`
	VoicePool     []Voice `json:"voicePool,omitempty"`
	Rationale     string  `json:"rationale,omitempty"`
}

// HookPreview is a short rendered hook sample for one voice candidate.
type HookPreview struct {
	VariantID  int    `json:"variantId"`
	VoiceIndex int    `json:"voiceIndex"`
	VoiceLabel string `json:"voiceLabel"`
	FileURL    string `json:"fileUrl"`
}

// HookPreviews is the preview batch rendered at the end of the main run.
type HookPreviews struct {
	AudioFiles []HookPreview `json:"audioFiles"`
	VoicePool  []Voice       `json:"voicePool,omitempty"`
}

// CampaignResult is the full output of one pipeline run. The Audio subtree is
// filled in later by audio jobs; MergeAudio on the client replaces only that
// subtree.
type CampaignResult struct {
	SessionID      string          `json:"sessionId"`
	Country        string          `json:"country"`
	Telco          string          `json:"telco"`
	Language       string          `json:"language,omitempty"`
	ProductBrief   map[string]any  `json:"productBrief,omitempty"`
	MarketAnalysis map[string]any  `json:"marketAnalysis,omitempty"`
	FinalScripts   ScriptSet       `json:"finalScripts"`
	VoiceSelection *VoiceSelection `json:"voiceSelection,omitempty"`
	HookPreviews   *HookPreviews   `json:"hookPreviews,omitempty"`
	Audio          *AudioManifest  `json:"audio,omitempty"`
}

// Campaign is a saved, named pipeline result.
type Campaign struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedBy string          `json:"createdBy"`
	Country   string          `json:"country"`
	Telco     string          `json:"telco"`
	Language  string          `json:"language,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Result    *CampaignResult `json:"result,omitempty"`
}

// CampaignCreateRequest saves a finished run under a name.
type CampaignCreateRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	CreatedBy string `json:"createdBy,omitempty"`
}

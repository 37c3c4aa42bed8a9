package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/obdsuperstar/api/internal/model"
	"github.com/obdsuperstar/api/internal/service"
)

// AudioWorker processes audio render jobs: full-batch renders and
// single-variant regenerations share the same task type.
type AudioWorker struct {
	audioService *service.AudioService
	publicURL    string
	// StepDelay paces the simulated render; zero renders instantly.
	StepDelay time.Duration
}

func NewAudioWorker(audioService *service.AudioService, publicURL string) *AudioWorker {
	return &AudioWorker{
		audioService: audioService,
		publicURL:    publicURL,
		StepDelay:    2 * time.Second,
	}
}

// ProcessTask handles one queued audio render.
func (w *AudioWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting audio job: %s", jobID)

	var payload model.AudioJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal audio payload: %w", err)
	}

	scripts := targetScripts(&payload)
	if len(scripts) == 0 {
		w.failJob(ctx, jobID, "No scripts to render")
		return nil
	}

	engine := payload.TTSEngine
	if engine == "" || engine == "auto" {
		engine = "elevenlabs"
	}

	manifest := &model.AudioManifest{
		SessionID: payload.SessionID,
		TTSEngine: engine,
	}

	total := len(scripts)
	for i, script := range scripts {
		select {
		case <-ctx.Done():
			log.Printf("Audio job %s cancelled", jobID)
			return ctx.Err()
		default:
		}

		voiceIdx := payload.VoiceChoices[script.VariantID]
		if voiceIdx == 0 {
			voiceIdx = 1
		}

		step := fmt.Sprintf("Rendering variant %d (voice %d)...", script.VariantID, voiceIdx)
		progress := (i * 100) / total
		if err := w.audioService.UpdateJobProgress(ctx, jobID, progress, step); err != nil {
			log.Printf("Failed to update progress: %v", err)
		}

		if w.StepDelay > 0 {
			time.Sleep(w.StepDelay)
		}

		manifest.AudioFiles = append(manifest.AudioFiles, w.renderVariant(payload.SessionID, script, voiceIdx)...)
	}

	manifest.Summary = model.AudioSummary{TotalGenerated: len(manifest.AudioFiles)}

	if err := w.audioService.CompleteJob(ctx, jobID, manifest); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	log.Printf("Audio job %s completed: %d files", jobID, len(manifest.AudioFiles))
	return nil
}

// targetScripts narrows the batch to one variant for regeneration jobs.
func targetScripts(payload *model.AudioJobPayload) []model.Script {
	if payload.VariantID == nil {
		return payload.Scripts.Scripts
	}
	for _, s := range payload.Scripts.Scripts {
		if s.VariantID == *payload.VariantID {
			return []model.Script{s}
		}
	}
	return nil
}

// renderVariant fabricates the recordings for one script variant: the full
// promo plus the fallback takes used when the subscriber stays silent.
func (w *AudioWorker) renderVariant(sessionID string, script model.Script, voiceIdx int) []model.AudioFile {
	sections := []struct {
		kind string
		text string
	}{
		{"full", script.FullScript},
		{"fallback_1", script.Fallback1},
		{"fallback_2", script.Fallback2},
	}

	var files []model.AudioFile
	for _, sec := range sections {
		if sec.text == "" {
			continue
		}
		name := fmt.Sprintf("v%d_%s.mp3", script.VariantID, sec.kind)
		files = append(files, model.AudioFile{
			VariantID:     script.VariantID,
			Type:          sec.kind,
			FileName:      name,
			FileURL:       fmt.Sprintf("%s/outputs/%s/%s", w.publicURL, sessionID, name),
			FileSizeBytes: int64(len(sec.text)) * 320,
			DurationSecs:  float64(len(sec.text)) / 14.0,
			VoiceIndex:    voiceIdx,
		})
	}
	return files
}

func (w *AudioWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.audioService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
}

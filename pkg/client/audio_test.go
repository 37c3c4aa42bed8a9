package client

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/obdsuperstar/api/internal/model"
)

func fastPolicy(maxAttempts int) PollPolicy {
	return PollPolicy{Interval: time.Millisecond, MaxAttempts: maxAttempts}
}

func TestPoll_TimesOutAfterMaxAttempts(t *testing.T) {
	var attempts int64
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		jsonResponse(w, http.StatusOK, `{"jobId":"j1","status":"running","progress":40}`)
	}))

	poller := NewAudioPoller(api).WithPolicy(fastPolicy(5))
	_, err := poller.Poll(context.Background(), "j1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := atomic.LoadInt64(&attempts); got != 5 {
		t.Errorf("expected exactly 5 attempts, got %d", got)
	}
}

func TestPoll_ToleratesTransientFailures(t *testing.T) {
	var attempts int64
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&attempts, 1)
		if n <= 2 {
			jsonResponse(w, http.StatusInternalServerError, `{"error":{"code":"SERVICE_ERROR","message":"boom"}}`)
			return
		}
		jsonResponse(w, http.StatusOK, `{"jobId":"j1","status":"done","progress":100,"result":{"sessionId":"s1","ttsEngine":"elevenlabs","audioFiles":[],"summary":{"totalGenerated":0,"totalFailed":0}}}`)
	}))

	poller := NewAudioPoller(api).WithPolicy(fastPolicy(10))
	manifest, err := poller.Poll(context.Background(), "j1")
	if err != nil {
		t.Fatalf("expected success after transient failures, got %v", err)
	}
	if manifest == nil || manifest.SessionID != "s1" {
		t.Fatalf("unexpected manifest: %+v", manifest)
	}
}

func TestPoll_StopsOnJobError(t *testing.T) {
	var attempts int64
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		jsonResponse(w, http.StatusOK, `{"jobId":"j1","status":"error","progress":60,"error":"render failed"}`)
	}))

	poller := NewAudioPoller(api).WithPolicy(fastPolicy(10))
	_, err := poller.Poll(context.Background(), "j1")

	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected JobError, got %v", err)
	}
	if jobErr.Message != "render failed" {
		t.Errorf("expected server failure message, got %q", jobErr.Message)
	}
	if got := atomic.LoadInt64(&attempts); got != 1 {
		t.Errorf("expected polling to stop immediately, got %d attempts", got)
	}
}

func TestCreateAndPoll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/audio/start", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusAccepted, `{"jobId":"j9","status":"pending","createdAt":"2026-08-30T10:00:00Z"}`)
	})
	mux.HandleFunc("/api/audio/status/j9", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"jobId":"j9","status":"done","progress":100,"result":{"sessionId":"s1","ttsEngine":"murf","audioFiles":[{"variantId":1,"type":"full","fileName":"v1_full.mp3","fileUrl":"http://x/v1_full.mp3","fileSizeBytes":1000,"durationSeconds":20,"voiceIndex":1}],"summary":{"totalGenerated":1,"totalFailed":0}}}`)
	})
	api := newTestAPI(t, mux)

	poller := NewAudioPoller(api).WithPolicy(fastPolicy(3))
	manifest, err := poller.CreateAndPoll(context.Background(), &model.AudioStartRequest{
		SessionID: "s1",
		Scripts:   model.ScriptSet{Scripts: []model.Script{{VariantID: 1, FullScript: "hello"}}},
	})
	if err != nil {
		t.Fatalf("CreateAndPoll failed: %v", err)
	}
	if len(manifest.AudioFiles) != 1 || manifest.AudioFiles[0].FileName != "v1_full.mp3" {
		t.Fatalf("unexpected manifest: %+v", manifest)
	}
}

func TestMergeAudio_ReplacesOnlyAudioSubtree(t *testing.T) {
	result := &model.CampaignResult{
		SessionID:    "s1",
		Country:      "GH",
		Telco:        "MTN",
		FinalScripts: model.ScriptSet{Scripts: []model.Script{{VariantID: 1, Theme: "Savings Rush"}}},
		Audio:        &model.AudioManifest{SessionID: "s1", TTSEngine: "old"},
	}
	manifest := &model.AudioManifest{SessionID: "s1", TTSEngine: "elevenlabs"}

	if !MergeAudio(result, manifest) {
		t.Fatal("expected merge to succeed")
	}
	if result.Audio != manifest {
		t.Error("expected Audio subtree to be replaced")
	}
	if result.Country != "GH" || len(result.FinalScripts.Scripts) != 1 {
		t.Error("expected the rest of the result to be untouched")
	}
}

func TestMergeAudio_RejectsSessionMismatch(t *testing.T) {
	result := &model.CampaignResult{SessionID: "s1"}
	stale := &model.AudioManifest{SessionID: "s0", TTSEngine: "murf"}

	if MergeAudio(result, stale) {
		t.Fatal("expected merge of a stale manifest to be refused")
	}
	if result.Audio != nil {
		t.Error("expected result to be untouched after refused merge")
	}
}

func TestMergeAudio_NilInputs(t *testing.T) {
	if MergeAudio(nil, &model.AudioManifest{}) {
		t.Error("expected merge into nil result to be refused")
	}
	if MergeAudio(&model.CampaignResult{SessionID: "s1"}, nil) {
		t.Error("expected merge of nil manifest to be refused")
	}
}

package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/obdsuperstar/api/internal/model"
	"github.com/obdsuperstar/api/pkg/pipeline"
)

func TestSessionStart_ValidatesLocally(t *testing.T) {
	var calls int64
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	session := NewSession(api, NewMemoryRunStore(), SessionEvents{})

	err := session.Start(context.Background(), &model.GenerateRequest{Country: "GH", Telco: "MTN"})
	if err == nil {
		t.Fatal("expected validation error for missing product text")
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Error("expected no request to be sent for an invalid form")
	}
}

func TestSessionResume_NothingPersisted(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	session := NewSession(api, NewMemoryRunStore(), SessionEvents{})

	if session.Resume(context.Background()) {
		t.Fatal("expected Resume to report nothing to resume")
	}
}

func TestSessionResume_StaleHandleClearsSilently(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"Job not found"}}`)
	}))
	store := NewMemoryRunStore()
	store.Set("gone1234")

	var errored bool
	session := NewSession(api, store, SessionEvents{
		OnError: func(string, *model.CampaignResult) { errored = true },
	})

	if session.Resume(context.Background()) {
		t.Fatal("expected Resume to fail for a stale handle")
	}
	if _, ok := store.Get(); ok {
		t.Error("expected the stale handle to be cleared")
	}
	if errored {
		t.Error("expected a silent fresh start, not an error callback")
	}
}

func TestSessionResume_RunningReplaysBufferedFrames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate/run12345/status", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{
			"jobId": "run12345",
			"status": "running",
			"progress": [
				{"agent":"ProductAnalyzer","status":"started","message":"Analyzing product..."},
				{"agent":"ProductAnalyzer","status":"completed","message":"Product analysis complete","data":{"product_name":"Data Bundle"}},
				{"agent":"MarketResearcher","status":"started","message":"Researching market..."}
			]
		}`)
	})
	api := newTestAPI(t, mux)
	store := NewMemoryRunStore()
	store.Set("run12345")

	session := NewSession(api, store, SessionEvents{})
	if !session.Resume(context.Background()) {
		t.Fatal("expected Resume to restore the running run")
	}

	steps := session.Steps()
	if steps[0].Status != model.StageCompleted {
		t.Errorf("expected first stage completed, got %s", steps[0].Status)
	}
	if steps[0].Data["product_name"] != "Data Bundle" {
		t.Errorf("expected stage data to be replayed, got %v", steps[0].Data)
	}
	if steps[1].Status != model.StageStarted {
		t.Errorf("expected second stage started, got %s", steps[1].Status)
	}
	for i := 2; i < len(steps); i++ {
		if steps[i].Status != model.StagePending {
			t.Errorf("expected stage %d pending, got %s", i, steps[i].Status)
		}
	}
	if _, ok := store.Get(); !ok {
		t.Error("expected the handle to survive while the run is still running")
	}
}

func TestSessionResume_FinishedRunShortCircuits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate/run12345/status", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{
			"jobId": "run12345",
			"status": "done",
			"progress": [],
			"result": {"sessionId":"run12345","country":"GH","telco":"MTN","finalScripts":{"scripts":[]}}
		}`)
	})
	api := newTestAPI(t, mux)
	store := NewMemoryRunStore()
	store.Set("run12345")

	var done *model.CampaignResult
	session := NewSession(api, store, SessionEvents{
		OnDone: func(r *model.CampaignResult) { done = r },
	})

	if !session.Resume(context.Background()) {
		t.Fatal("expected Resume to restore the finished run")
	}
	if done == nil || done.SessionID != "run12345" {
		t.Fatalf("expected OnDone with the stored result, got %+v", done)
	}
	if _, ok := store.Get(); ok {
		t.Error("expected the handle to be cleared for a finished run")
	}
	if !session.Finished() {
		t.Error("expected the session to be terminal")
	}
}

func TestSessionHandleFrame_FoldsStageFrames(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())

	var stepUpdates int
	session := NewSession(api, NewMemoryRunStore(), SessionEvents{
		OnSteps: func(pipeline.Steps) { stepUpdates++ },
	})

	over := session.handleFrame(model.ProgressFrame{Agent: "ProductAnalyzer", Status: model.StageStarted, Message: "Analyzing..."})
	if over {
		t.Fatal("stage frame must not end the run")
	}
	if session.Steps()[0].Status != model.StageStarted {
		t.Errorf("expected first stage started, got %s", session.Steps()[0].Status)
	}
	if stepUpdates != 1 {
		t.Errorf("expected one step update, got %d", stepUpdates)
	}

	// A frame for an unknown agent is dropped without an update.
	session.handleFrame(model.ProgressFrame{Agent: "Mystery", Status: model.StageStarted})
	if stepUpdates != 1 {
		t.Errorf("expected dropped frame to emit no update, got %d", stepUpdates)
	}
}

func TestSessionHandleFrame_TerminalAppliedExactlyOnce(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())
	store := NewMemoryRunStore()
	store.Set("run12345")

	var doneCalls int
	session := NewSession(api, store, SessionEvents{
		OnDone: func(*model.CampaignResult) { doneCalls++ },
	})

	terminal := model.ProgressFrame{
		Agent:  model.AgentPipeline,
		Status: model.StageDone,
		Result: &model.CampaignResult{SessionID: "run12345"},
	}

	if !session.handleFrame(terminal) {
		t.Fatal("terminal frame must end the run")
	}
	if !session.handleFrame(terminal) {
		t.Fatal("duplicate terminal frame must still report the run as over")
	}

	if doneCalls != 1 {
		t.Errorf("expected OnDone exactly once, got %d", doneCalls)
	}
	if _, ok := store.Get(); ok {
		t.Error("expected the handle to be cleared")
	}
	if session.Result() == nil || session.Result().SessionID != "run12345" {
		t.Errorf("expected result to be retained, got %+v", session.Result())
	}
}

func TestSessionHandleFrame_ErrorKeepsPartialResult(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())
	store := NewMemoryRunStore()
	store.Set("run12345")

	var gotMsg string
	var gotPartial *model.CampaignResult
	session := NewSession(api, store, SessionEvents{
		OnError: func(msg string, partial *model.CampaignResult) {
			gotMsg = msg
			gotPartial = partial
		},
	})

	session.handleFrame(model.ProgressFrame{Agent: "ProductAnalyzer", Status: model.StageStarted})
	session.handleFrame(model.ProgressFrame{
		Agent:   model.AgentPipeline,
		Status:  model.StageError,
		Message: "voice selection failed",
		Result:  &model.CampaignResult{SessionID: "run12345", Country: "Ghana"},
	})

	if gotMsg != "voice selection failed" {
		t.Errorf("expected error message to surface, got %q", gotMsg)
	}
	if gotPartial == nil || gotPartial.SessionID != "run12345" {
		t.Fatalf("expected the partial result on the error frame to surface, got %+v", gotPartial)
	}
	if session.Result() == nil || session.Result().Country != "Ghana" {
		t.Errorf("expected the partial result to be retained, got %+v", session.Result())
	}
	if session.Steps()[0].Status != model.StageStarted {
		t.Error("expected the step view to survive the failure")
	}
	if _, ok := store.Get(); ok {
		t.Error("expected the handle to be cleared on failure")
	}
}

func TestSessionMergeAudio_GuardsSession(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())
	session := NewSession(api, NewMemoryRunStore(), SessionEvents{})

	session.handleFrame(model.ProgressFrame{
		Agent:  model.AgentPipeline,
		Status: model.StageDone,
		Result: &model.CampaignResult{SessionID: "s1"},
	})

	if session.MergeAudio(&model.AudioManifest{SessionID: "s0"}) {
		t.Error("expected stale manifest to be refused")
	}
	if !session.MergeAudio(&model.AudioManifest{SessionID: "s1", TTSEngine: "murf"}) {
		t.Error("expected matching manifest to merge")
	}
	if session.Result().Audio == nil || session.Result().Audio.TTSEngine != "murf" {
		t.Errorf("expected audio subtree to be attached, got %+v", session.Result().Audio)
	}
}

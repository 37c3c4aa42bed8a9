package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/obdsuperstar/api/internal/model"
)

// ProgressFunc receives stage frames as the pipeline advances. The terminal
// Pipeline frame is emitted by the run registry, not by the orchestrator.
type ProgressFunc func(frame model.ProgressFrame)

// Orchestrator runs the multi-agent generation pipeline. The real agent
// implementations live behind this interface; the service only consumes
// progress frames and the final result.
type Orchestrator interface {
	Run(ctx context.Context, req *model.GenerateRequest, sessionID string, progress ProgressFunc) (*model.CampaignResult, error)
}

// SimulatedOrchestrator produces deterministic mock results while emitting
// the same frame sequence a real agent pipeline would: analysis and research
// start together, scripts are written, evaluated and revised, then a voice is
// picked and hook previews rendered.
type SimulatedOrchestrator struct {
	// StepDelay paces the simulation; zero runs the pipeline instantly.
	StepDelay time.Duration
}

func NewSimulatedOrchestrator(stepDelay time.Duration) *SimulatedOrchestrator {
	return &SimulatedOrchestrator{StepDelay: stepDelay}
}

func (o *SimulatedOrchestrator) Run(ctx context.Context, req *model.GenerateRequest, sessionID string, progress ProgressFunc) (*model.CampaignResult, error) {
	emit := func(agent string, status model.StageStatus, msg string, data map[string]any) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		progress(model.ProgressFrame{Agent: agent, Status: status, Message: msg, Data: data})
		if o.StepDelay > 0 {
			time.Sleep(o.StepDelay)
		}
		return nil
	}

	productName := guessProductName(req.ProductText)

	if err := emit("ProductAnalyzer", model.StageStarted, "Analyzing product documentation...", nil); err != nil {
		return nil, err
	}
	if err := emit("MarketResearcher", model.StageStarted,
		fmt.Sprintf("Researching market: %s / %s...", req.Country, req.Telco), nil); err != nil {
		return nil, err
	}

	brief := map[string]any{
		"product_name": productName,
		"description":  truncate(req.ProductText, 200),
		"category":     "telco_promotion",
	}
	if err := emit("ProductAnalyzer", model.StageCompleted,
		fmt.Sprintf("Product analyzed: %s", productName), brief); err != nil {
		return nil, err
	}

	analysis := map[string]any{
		"country":        req.Country,
		"telco":          req.Telco,
		"primary_locale": primaryLanguage(req),
		"tone":           "upbeat, trusted, value-first",
	}
	if err := emit("MarketResearcher", model.StageCompleted, "Market analysis complete", analysis); err != nil {
		return nil, err
	}

	if err := emit("ScriptWriter", model.StageStarted, "Generating OBD script variants...", nil); err != nil {
		return nil, err
	}
	initial := mockScripts(req, productName, false)
	if err := emit("ScriptWriter", model.StageCompleted,
		fmt.Sprintf("Generated %d script variants", len(initial.Scripts)),
		map[string]any{"variants": len(initial.Scripts)}); err != nil {
		return nil, err
	}

	if err := emit("EvalPanel", model.StageStarted, "Evaluation panel reviewing scripts...", nil); err != nil {
		return nil, err
	}
	if err := emit("EvalPanel", model.StageCompleted, "Evaluation complete",
		map[string]any{"overall_score": 8.2, "verdict": "tighten hooks, keep CTA"}); err != nil {
		return nil, err
	}

	if err := emit("ScriptWriter", model.StageStarted, "Revising scripts based on feedback...", nil); err != nil {
		return nil, err
	}
	final := mockScripts(req, productName, true)
	if err := emit("ScriptWriter", model.StageCompleted, "Scripts revised",
		map[string]any{"variants": len(final.Scripts)}); err != nil {
		return nil, err
	}

	if err := emit("VoiceSelector", model.StageStarted, "Selecting optimal voice and parameters...", nil); err != nil {
		return nil, err
	}
	selection := mockVoiceSelection(req)
	if err := emit("VoiceSelector", model.StageCompleted,
		fmt.Sprintf("Voice selected: %s", selection.SelectedVoice.Name),
		map[string]any{"selected_voice": selection.SelectedVoice.Name}); err != nil {
		return nil, err
	}

	if err := emit("AudioProducer", model.StageStarted, "Rendering hook previews...", nil); err != nil {
		return nil, err
	}
	previews := mockHookPreviews(sessionID, final, selection)
	if err := emit("AudioProducer", model.StageCompleted,
		fmt.Sprintf("Rendered %d hook previews", len(previews.AudioFiles)),
		map[string]any{"previews": len(previews.AudioFiles)}); err != nil {
		return nil, err
	}

	return &model.CampaignResult{
		SessionID:      sessionID,
		Country:        req.Country,
		Telco:          req.Telco,
		Language:       primaryLanguage(req),
		ProductBrief:   brief,
		MarketAnalysis: analysis,
		FinalScripts:   final,
		VoiceSelection: &selection,
		HookPreviews:   &previews,
	}, nil
}

func guessProductName(productText string) string {
	line := strings.TrimSpace(productText)
	if i := strings.IndexAny(line, ".\n"); i > 0 {
		line = line[:i]
	}
	words := strings.Fields(line)
	if len(words) > 5 {
		words = words[:5]
	}
	if len(words) == 0 {
		return "Unknown Product"
	}
	return strings.Join(words, " ")
}

func primaryLanguage(req *model.GenerateRequest) string {
	if req.Language != "" {
		return req.Language
	}
	return "English"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func mockScripts(req *model.GenerateRequest, productName string, revised bool) model.ScriptSet {
	themes := []string{"Savings Rush", "Family Connect", "Night Owl Bonus"}
	lang := primaryLanguage(req)
	set := model.ScriptSet{Language: lang}
	for i, theme := range themes {
		hook := fmt.Sprintf("Hello! %s has a special %s offer just for you.", req.Telco, productName)
		if revised {
			hook = fmt.Sprintf("Don't miss it! %s brings you %s today only.", req.Telco, productName)
		}
		body := fmt.Sprintf("Enjoy %s with unbeatable value across %s. Activate now and save instantly.", productName, req.Country)
		cta := "Press 1 now to activate this offer."
		full := hook + " " + body + " " + cta
		set.Scripts = append(set.Scripts, model.Script{
			VariantID:     i + 1,
			Theme:         theme,
			Language:      lang,
			Hook:          hook,
			Body:          body,
			CTA:           cta,
			FullScript:    full,
			Fallback1:     "Offer ends tonight, press 1 before it's gone.",
			Fallback2:     "Thousands already joined. Press 1 to be next.",
			PoliteClosure: "Thank you for listening. Goodbye.",
			WordCount:     len(strings.Fields(full)),
			EstimatedSecs: 28,
		})
	}
	return set
}

func mockVoiceSelection(req *model.GenerateRequest) model.VoiceSelection {
	pool := []model.Voice{
		{ID: "v-amara", Name: "Amara", Gender: "female", Accent: req.Country, Provider: "elevenlabs"},
		{ID: "v-kofi", Name: "Kofi", Gender: "male", Accent: req.Country, Provider: "elevenlabs"},
		{ID: "v-nadia", Name: "Nadia", Gender: "female", Accent: "neutral", Provider: "murf"},
	}
	return model.VoiceSelection{
		SelectedVoice: pool[0],
		VoicePool:     pool,
		Rationale:     "Warm female voice scores highest for telco promos in this market.",
	}
}

func mockHookPreviews(sessionID string, scripts model.ScriptSet, sel model.VoiceSelection) model.HookPreviews {
	previews := model.HookPreviews{VoicePool: sel.VoicePool}
	for _, s := range scripts.Scripts {
		for vi, voice := range sel.VoicePool {
			previews.AudioFiles = append(previews.AudioFiles, model.HookPreview{
				VariantID:  s.VariantID,
				VoiceIndex: vi + 1,
				VoiceLabel: voice.Name,
				FileURL:    fmt.Sprintf("/outputs/%s/hook_v%d_voice%d.mp3", sessionID, s.VariantID, vi+1),
			})
		}
	}
	return previews
}

// Package pipeline defines the fixed stage template of a generation run and
// the step state machine that folds progress frames into per-stage state. The
// machine is a pure function over (steps, frame) so it can be driven equally
// by a live stream or by buffered frames replayed after a reload.
package pipeline

import "github.com/obdsuperstar/api/internal/model"

// StageRef is one slot in the template. Two slots may share an AgentKey: the
// script writer runs once for generation and once for revision.
type StageRef struct {
	AgentKey string `json:"agentKey"`
	Label    string `json:"label"`
}

// Template is the ordered stage sequence of a pipeline type.
type Template []StageRef

// DefaultTemplate is the OBD campaign pipeline.
func DefaultTemplate() Template {
	return Template{
		{AgentKey: "ProductAnalyzer", Label: "Product Analysis"},
		{AgentKey: "MarketResearcher", Label: "Market Research"},
		{AgentKey: "ScriptWriter", Label: "Script Writing"},
		{AgentKey: "EvalPanel", Label: "Evaluation Panel"},
		{AgentKey: "ScriptWriter", Label: "Script Revision"},
		{AgentKey: "VoiceSelector", Label: "Voice Selection"},
		{AgentKey: "AudioProducer", Label: "Audio Production"},
	}
}

// Step is the derived state of one template slot.
type Step struct {
	AgentKey string            `json:"agentKey"`
	Label    string            `json:"label"`
	Status   model.StageStatus `json:"status"`
	Message  string            `json:"message,omitempty"`
	Data     map[string]any    `json:"data,omitempty"`
}

// Steps is the per-run slot list, same length and order as the template.
type Steps []Step

// NewSteps builds the all-pending slot list for a fresh run.
func NewSteps(t Template) Steps {
	steps := make(Steps, len(t))
	for i, ref := range t {
		steps[i] = Step{AgentKey: ref.AgentKey, Label: ref.Label, Status: model.StagePending}
	}
	return steps
}

package pipeline

import "github.com/obdsuperstar/api/internal/model"

// Apply folds one stage frame into the slot list and returns the new list.
// The target slot is the first one whose AgentKey matches the frame and whose
// status is not yet completed; because frames for a run arrive in template
// order, this advances the earliest unfinished occurrence and so keeps two
// same-named stages (generation vs revision) apart. A frame that matches no
// such slot (a late duplicate for a completed stage, or an unknown agent)
// is dropped and the second return is false.
//
// Slot status is monotonic: pending → started → completed|error. A completed
// slot never changes again; Data is attached only when the slot completes.
func Apply(steps Steps, frame model.ProgressFrame) (Steps, bool) {
	if frame.Terminal() {
		return steps, false
	}
	idx := -1
	for i := range steps {
		if steps[i].AgentKey == frame.Agent && steps[i].Status != model.StageCompleted {
			idx = i
			break
		}
	}
	if idx < 0 {
		return steps, false
	}

	next := make(Steps, len(steps))
	copy(next, steps)

	slot := &next[idx]
	switch frame.Status {
	case model.StageStarted, model.StageCompleted, model.StageError:
		slot.Status = frame.Status
	default:
		return steps, false
	}
	if frame.Message != "" {
		slot.Message = frame.Message
	}
	if frame.Status == model.StageCompleted && len(frame.Data) > 0 {
		slot.Data = frame.Data
	}
	return next, true
}

// Replay applies a buffered frame sequence in order, dropping terminal and
// unmatched frames, and returns the resulting slot list.
func Replay(steps Steps, frames []model.ProgressFrame) Steps {
	for _, f := range frames {
		steps, _ = Apply(steps, f)
	}
	return steps
}

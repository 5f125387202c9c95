package domain

// AnswerState is the lifecycle stage of an Answer.
type AnswerState int

const (
	// StateDraft allows autosave, edits and manual submission.
	StateDraft AnswerState = iota
	// StateReadyForReview freezes the guesses; only assessment may run.
	StateReadyForReview
	// StateCompleted is terminal; the answer is read-only history.
	StateCompleted
)

func (s AnswerState) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateReadyForReview:
		return "readyForReview"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// State derives the lifecycle stage from the two persisted flags.
// Completion is checked first, so the flag pair (completed, unchecked) can
// never surface as a fourth state.
func (a *Answer) State() AnswerState {
	switch {
	case a.IsCompleted:
		return StateCompleted
	case a.IsChecked:
		return StateReadyForReview
	default:
		return StateDraft
	}
}

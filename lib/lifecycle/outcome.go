package lifecycle

// Outcome is the terminal state of a challenge. Every challenge reaches
// exactly one outcome other than OutcomeNone.
type Outcome int

const (
	// OutcomeNone means nothing was resolved: there was no pending
	// challenge for the key.
	OutcomeNone Outcome = iota

	// OutcomeApproved means the correct answer arrived in time.
	OutcomeApproved

	// OutcomeTimeoutBan means the challenge expired unanswered.
	OutcomeTimeoutBan

	// OutcomeWrongAnswerBan means a wrong option was selected.
	OutcomeWrongAnswerBan

	// OutcomeTooFastBan means the correct answer arrived faster than any
	// human plausibly reads the question.
	OutcomeTooFastBan
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeApproved:
		return "approved"
	case OutcomeTimeoutBan:
		return "timeout"
	case OutcomeWrongAnswerBan:
		return "wrong_answer"
	case OutcomeTooFastBan:
		return "too_fast"
	default:
		return "unknown"
	}
}

// Banned reports whether the outcome removes the user from the chat.
func (o Outcome) Banned() bool {
	switch o {
	case OutcomeTimeoutBan, OutcomeWrongAnswerBan, OutcomeTooFastBan:
		return true
	default:
		return false
	}
}

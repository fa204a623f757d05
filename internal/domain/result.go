package domain

// Result classifies the outcome of a relay attempt.
type Result int

const (
	Relayed Result = iota
	SkippedDuplicate
	SkippedEcho
	Ignored
	SkippedForeignSender
	SkippedUnknownConversation
	FailedParticipant
	FailedSend
)

func (r Result) String() string {
	switch r {
	case Relayed:
		return "relayed"
	case SkippedDuplicate:
		return "skipped-duplicate"
	case SkippedEcho:
		return "skipped-echo"
	case Ignored:
		return "ignored"
	case SkippedForeignSender:
		return "skipped-foreign-sender"
	case SkippedUnknownConversation:
		return "skipped-unknown-conversation"
	case FailedParticipant:
		return "failed-participant-creation"
	case FailedSend:
		return "failed-send"
	}
	return "unknown"
}

// Failed reports whether the outcome should surface as an error to the
// webhook sender.
func (r Result) Failed() bool {
	return r == FailedParticipant || r == FailedSend
}

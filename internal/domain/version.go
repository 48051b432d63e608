package domain

// VersionDecision is the outcome of comparing an incoming event version
// against the local replica version.
type VersionDecision int

const (
	// ApplyEvent: the event is the immediate successor of the local state.
	ApplyEvent VersionDecision = iota
	// SkipEvent: the event was already applied or superseded.
	SkipEvent
	// HoldEvent: a predecessor has not arrived yet. Do not acknowledge.
	HoldEvent
)

func (d VersionDecision) String() string {
	switch d {
	case ApplyEvent:
		return "apply"
	case SkipEvent:
		return "skip"
	case HoldEvent:
		return "hold"
	default:
		return "unknown"
	}
}

// DecideVersion implements the optimistic-concurrency rule every listener
// follows: an event is applied only when its version is exactly one greater
// than the local replica's. Pass local = -1 when no replica exists yet, so
// a version-0 creation event applies.
func DecideVersion(local, incoming int64) VersionDecision {
	switch {
	case incoming == local+1:
		return ApplyEvent
	case incoming <= local:
		return SkipEvent
	default:
		return HoldEvent
	}
}

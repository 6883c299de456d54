package models

type JobStatus string

const (
	JobStatusQueued                JobStatus = "queued"
	JobStatusDownloading           JobStatus = "downloading"
	JobStatusConverting            JobStatus = "converting"
	JobStatusAwaitingTranscription JobStatus = "awaiting_transcription"
	JobStatusTranscribing          JobStatus = "transcribing"
	JobStatusReady                 JobStatus = "ready"
	JobStatusFailed                JobStatus = "failed"
)

var AllStatuses = []JobStatus{
	JobStatusQueued,
	JobStatusDownloading,
	JobStatusConverting,
	JobStatusAwaitingTranscription,
	JobStatusTranscribing,
	JobStatusReady,
	JobStatusFailed,
}

// forward holds the only legal non-failure edges.
var forward = map[JobStatus]JobStatus{
	JobStatusQueued:                JobStatusDownloading,
	JobStatusDownloading:           JobStatusConverting,
	JobStatusConverting:            JobStatusAwaitingTranscription,
	JobStatusAwaitingTranscription: JobStatusTranscribing,
	JobStatusTranscribing:          JobStatusReady,
}

func (s JobStatus) String() string {
	return string(s)
}

func (s JobStatus) Valid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusReady || s == JobStatusFailed
}

func (s JobStatus) rank() int {
	for i, st := range AllStatuses[:6] {
		if st == s {
			return i
		}
	}
	return -1
}

func CanTransition(from, to JobStatus) bool {
	if to == JobStatusFailed {
		return from.Valid() && !from.IsTerminal()
	}
	next, ok := forward[from]
	return ok && next == to
}

// Predecessors returns the statuses from which to can be entered directly.
func Predecessors(to JobStatus) []JobStatus {
	var out []JobStatus
	for _, from := range AllStatuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// AdvanceGuard is the set of current statuses from which moving to target is either a legal edge
// or no change at all. Progress writers use it so they can never move a job backward.
func AdvanceGuard(target JobStatus) []JobStatus {
	guard := Predecessors(target)
	if !target.IsTerminal() {
		guard = append(guard, target)
	}
	return guard
}

// IsForward reports whether the observed move from -> to never goes backward: it either keeps the
// status, follows the pipeline order, or ends in failed from a non-terminal status.
func IsForward(from, to JobStatus) bool {
	if from == to {
		return true
	}
	if to == JobStatusFailed {
		return !from.IsTerminal()
	}
	if from.IsTerminal() {
		return false
	}
	return to.rank() > from.rank()
}

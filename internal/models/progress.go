package models

import "fmt"

// Phase is the closed set of progress phases the fetch+transcode executor emits.
type Phase string

const (
	PhaseFetching    Phase = "fetching"
	PhaseNormalizing Phase = "normalizing"
)

type ProgressEvent struct {
	Phase    Phase
	Fraction float64
}

func (e ProgressEvent) Validate() error {
	switch e.Phase {
	case PhaseFetching, PhaseNormalizing:
		return nil
	default:
		return fmt.Errorf("phase %q: %w", e.Phase, ErrUnknownPhase)
	}
}

package progress

import (
	"context"
	"fmt"
	"sync"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/google/uuid"
)

var phaseSteps = map[models.Phase]struct {
	step  string
	label string
}{
	models.PhaseFetching:    {step: "downloading", label: "Downloading audio"},
	models.PhaseNormalizing: {step: "converting", label: "Converting to 16 kHz mono"},
}

// Emitter feeds executor events for one run into the reporter. Within a run the reported percent
// only grows, and an event that maps to an already reported percent is dropped without a write.
type Emitter struct {
	mu       sync.Mutex
	reporter *Reporter
	jobID    uuid.UUID
	attempt  int
	last     int
}

func (r *Reporter) NewEmitter(jobID uuid.UUID, attempt int) *Emitter {
	return &Emitter{reporter: r, jobID: jobID, attempt: attempt}
}

func (e *Emitter) Emit(ctx context.Context, ev models.ProgressEvent) error {
	band, err := BandFor(ev.Phase)
	if err != nil {
		return err
	}
	pct := band.At(ev.Fraction)

	e.mu.Lock()
	defer e.mu.Unlock()
	if pct <= e.last {
		return nil
	}
	ps := phaseSteps[ev.Phase]
	if _, err = e.reporter.Report(ctx, e.jobID, Update{
		Step:    ps.step,
		Message: fmt.Sprintf("%s… %d%%", ps.label, pct),
		Percent: pct,
		Attempt: e.attempt,
	}); err != nil {
		return err
	}
	e.last = pct
	return nil
}

func (e *Emitter) Last() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

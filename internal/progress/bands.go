package progress

import (
	"math"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
)

// Band is an inclusive slice of the overall percent scale owned by one phase of the pipeline.
type Band struct {
	Low  int
	High int
}

var (
	FetchBand      = Band{Low: 1, High: 40}
	NormalizeBand  = Band{Low: 50, High: 58}
	UploadBand     = Band{Low: 58, High: 65}
	TranscribeBand = Band{Low: 65, High: 99}
)

const (
	// AwaitingPercent is where a job rests once both audio artifacts are stored.
	AwaitingPercent = 65
	// TranscribeCeiling is the highest percent a heartbeat may report. 100 belongs to ready.
	TranscribeCeiling = 99
	ReadyPercent      = 100
)

// At maps fraction in [0,1] onto the band. Out-of-range and NaN fractions are clamped.
func (b Band) At(fraction float64) int {
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return b.Low + int(math.Round(fraction*float64(b.High-b.Low)))
}

func BandFor(phase models.Phase) (Band, error) {
	if err := (models.ProgressEvent{Phase: phase}).Validate(); err != nil {
		return Band{}, err
	}
	switch phase {
	case models.PhaseFetching:
		return FetchBand, nil
	default:
		return NormalizeBand, nil
	}
}

func HeartbeatPercent(reported int) int {
	p := models.ClampPercent(reported)
	if p > TranscribeCeiling {
		return TranscribeCeiling
	}
	return p
}

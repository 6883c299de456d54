package worker

import (
	"context"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
)

const (
	sourceAudioName     = models.SourceAudioFile
	normalizedAudioName = models.NormalizedAudioFile
	normalizedRate      = "16000"
)

type FetchResult struct {
	Metadata            models.Metadata
	SourceAudioPath     string
	NormalizedAudioPath string
}

// FetchHooks receive what the executor learns while it runs. Either may be nil.
type FetchHooks struct {
	OnProgress func(models.ProgressEvent)
	OnMetadata func(models.Metadata)
}

// Executor fetches a source URL and normalizes its audio to mono 16 kHz PCM inside workDir.
type Executor interface {
	FetchAndNormalize(ctx context.Context, sourceURL, workDir string, hooks FetchHooks) (*FetchResult, error)
}

package models

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SourceAudioFile     = "source.mp3"
	NormalizedAudioFile = "audio_16k.wav"
	TranscriptJSONFile  = "transcript.json"
	TranscriptVTTFile   = "transcript.vtt"

	SourceAudioContentType     = "audio/mpeg"
	NormalizedAudioContentType = "audio/wav"
	TranscriptJSONContentType  = "application/json"
	TranscriptVTTContentType   = "text/vtt"

	namespaceRoot = "jobs"
)

func Namespace(createdAt time.Time, externalID uuid.UUID) string {
	return path.Join(namespaceRoot, createdAt.UTC().Format("2006/01/02"), externalID.String())
}

func ArtifactKey(namespace, filename string) string {
	return path.Join(namespace, filename)
}

// TranscriptKeys derives the transcript output keys from the directory of the normalized-audio key.
// The claim and the completion call both go through here, so they always agree.
func TranscriptKeys(normalizedKey string) (jsonKey, vttKey string, err error) {
	if normalizedKey == "" {
		return "", "", fmt.Errorf("normalized audio key is empty: %w", ErrPreconditionFailed)
	}
	dir := path.Dir(normalizedKey)
	if dir == "." || dir == "/" || !strings.Contains(normalizedKey, "/") {
		return "", "", fmt.Errorf("normalized audio key %q has no namespace: %w", normalizedKey, ErrPreconditionFailed)
	}
	return path.Join(dir, TranscriptJSONFile), path.Join(dir, TranscriptVTTFile), nil
}

package models

import (
	"time"
)

// Grant is a time-boxed, method-scoped (and for writes content-type-scoped) URL for one object.
type Grant struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	ContentType string    `json:"content_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type WorkerSettings struct {
	Model string `json:"model"`
	VAD   bool   `json:"vad"`
}

// ClaimGrant is handed to exactly one worker per claimed job.
type ClaimGrant struct {
	Job                 *Job
	AudioRead           *Grant
	TranscriptJSONWrite *Grant
	TranscriptVTTWrite  *Grant
	Settings            WorkerSettings
	ValidFor            time.Duration
}

// WorkerIdentity is what a credential verifier learned about the caller.
type WorkerIdentity struct {
	Name string
}

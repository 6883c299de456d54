package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxMessageLength = 255
	MinPercent       = 0
	MaxPercent       = 100
)

// Metadata is filled opportunistically while fetching; nothing branches on it.
type Metadata struct {
	YoutubeID    string     `json:"youtube_id" db:"youtube_id"`
	Title        string     `json:"title" db:"title"`
	ChannelTitle string     `json:"channel_title" db:"channel_title"`
	PublishedAt  *time.Time `json:"published_at,omitempty" db:"published_at"`
	DurationSec  *float64   `json:"duration_sec,omitempty" db:"duration_sec"`
}

// ArtifactRefs holds the object keys of a job. An empty string means the artifact is absent.
type ArtifactRefs struct {
	SourceAudio     string `json:"source_audio,omitempty" db:"source_audio_key"`
	NormalizedAudio string `json:"normalized_audio,omitempty" db:"normalized_audio_key"`
	TranscriptJSON  string `json:"transcript_json,omitempty" db:"transcript_json_key"`
	TranscriptVTT   string `json:"transcript_vtt,omitempty" db:"transcript_vtt_key"`
}

type Job struct {
	ID             int64     `json:"-" db:"id"`
	ExternalID     uuid.UUID `json:"job_id" db:"external_id"`
	SourceURL      string    `json:"source_url" db:"source_url"`
	Metadata       `json:"metadata"`
	Status         JobStatus `json:"status" db:"status"`
	Step           string    `json:"step" db:"step"`
	Percent        int       `json:"percent" db:"percent"`
	Message        string    `json:"message" db:"message"`
	ArtifactRefs   `json:"artifacts"`
	Language       string        `json:"language,omitempty" db:"language"`
	SegmentCount   *int          `json:"segment_count,omitempty" db:"segment_count"`
	Attempts       int           `json:"attempts" db:"attempts"`
	ClaimID        uuid.NullUUID `json:"-" db:"claim_id"`
	ClaimedAt      *time.Time    `json:"claimed_at,omitempty" db:"claimed_at"`
	ClaimExpiresAt *time.Time    `json:"claim_expires_at,omitempty" db:"claim_expires_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Namespace is the storage prefix every artifact of this job lives under.
func (j *Job) Namespace() string {
	return Namespace(j.CreatedAt, j.ExternalID)
}

// StatusView is what polling clients see.
func (j *Job) StatusView() *StatusView {
	view := &StatusView{
		JobID:     j.ExternalID,
		Status:    j.Status,
		Step:      j.Step,
		Percent:   j.Percent,
		Message:   j.Message,
		UpdatedAt: j.UpdatedAt,
		Title:     j.Title,
		YoutubeID: j.YoutubeID,
	}
	if j.DurationSec != nil {
		view.DurationSec = *j.DurationSec
	}
	return view
}

type StatusView struct {
	JobID       uuid.UUID `json:"job_id"`
	Status      JobStatus `json:"status"`
	Step        string    `json:"step"`
	Percent     int       `json:"percent"`
	Message     string    `json:"message"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `json:"title"`
	YoutubeID   string    `json:"youtube_id"`
	DurationSec float64   `json:"duration_sec"`
}

// ReadyView carries read grants for all four artifacts, nil where the artifact is absent.
type ReadyView struct {
	Job                *Job    `json:"job"`
	SourceAudioURL     *string `json:"source_audio_url"`
	NormalizedAudioURL *string `json:"normalized_audio_url"`
	TranscriptJSONURL  *string `json:"transcript_json_url"`
	TranscriptVTTURL   *string `json:"transcript_vtt_url"`
}

type JobList struct {
	Jobs       []*Job `json:"jobs"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	HasMore    bool   `json:"has_more"`
}

type PercentMode int

const (
	// PercentSet overwrites the stored percent.
	PercentSet PercentMode = iota
	// PercentMax keeps the larger of the stored and the new percent.
	PercentMax
)

// JobPatch names only the fields a writer intends to change. updated_at is always bumped.
type JobPatch struct {
	Status *JobStatus
	// When restricts the update to jobs currently in one of these statuses. If empty and Status is
	// set, the legal predecessors of Status are used.
	When []JobStatus
	// Attempt, when set, restricts the update to a job still on that prepare attempt.
	Attempt            *int
	Step               *string
	Percent            *int
	PercentMode        PercentMode
	Message            *string
	Metadata           *Metadata
	SourceAudioKey     *string
	NormalizedAudioKey *string
	TranscriptJSONKey  *string
	TranscriptVTTKey   *string
	Language           *string
	SegmentCount       *int
	ClearClaim         bool
}

func (p *JobPatch) Guard() []JobStatus {
	if len(p.When) > 0 {
		return p.When
	}
	if p.Status != nil {
		return Predecessors(*p.Status)
	}
	return nil
}

func (p *JobPatch) Validate() error {
	if p.Status != nil {
		if !p.Status.Valid() {
			return ErrValidation
		}
		if *p.Status == JobStatusAwaitingTranscription && (p.NormalizedAudioKey == nil || *p.NormalizedAudioKey == "") {
			return ErrPreconditionFailed
		}
	}
	return nil
}

// ClampPercent bounds p to [0,100].
func ClampPercent(p int) int {
	if p < MinPercent {
		return MinPercent
	}
	if p > MaxPercent {
		return MaxPercent
	}
	return p
}

// TruncateMessage cuts s to MaxMessageLength characters without splitting a rune.
func TruncateMessage(s string) string {
	if utf8.RuneCountInString(s) <= MaxMessageLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxMessageLength])
}

func Ptr[T any](v T) *T {
	return &v
}

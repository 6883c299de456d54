package models

import "github.com/google/uuid"

// SubmitInput is the body of a job submission.
type SubmitInput struct {
	URL string `json:"url" validate:"required,max=2048,httpurl"`
}

type HeartbeatInput struct {
	JobID   uuid.UUID `json:"job_id" validate:"required"`
	Percent *int      `json:"percent,omitempty"`
	Message *string   `json:"message,omitempty"`
}

type CompleteInput struct {
	JobID        uuid.UUID `json:"job_id" validate:"required"`
	Language     *string   `json:"language,omitempty" validate:"omitempty,max=32"`
	SegmentCount *int      `json:"segment_count,omitempty" validate:"omitempty,min=0"`
}

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobID(t *testing.T) {
	id := uuid.New()
	got, err := parseJobID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = parseJobID("42")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRenderJobs(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	renderJobs(&buf, []*models.Job{
		{
			ExternalID: uuid.New(),
			SourceURL:  "https://example.com/v",
			Status:     models.JobStatusFailed,
			Percent:    30,
			Attempts:   3,
			UpdatedAt:  time.Now(),
		},
		{
			ExternalID: uuid.New(),
			SourceURL:  "https://example.com/w",
			Metadata:   models.Metadata{Title: "A talk"},
			Status:     models.JobStatusReady,
			Percent:    100,
			UpdatedAt:  time.Now(),
		},
	})
	out := buf.String()
	assert.Contains(t, out, "https://example.com/v")
	assert.Contains(t, out, "A talk")
	assert.NotContains(t, out, "https://example.com/w")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "ready")
}

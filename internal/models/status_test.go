package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]JobStatus{
		{JobStatusQueued, JobStatusDownloading},
		{JobStatusDownloading, JobStatusConverting},
		{JobStatusConverting, JobStatusAwaitingTranscription},
		{JobStatusAwaitingTranscription, JobStatusTranscribing},
		{JobStatusTranscribing, JobStatusReady},
	}
	for _, st := range []JobStatus{JobStatusQueued, JobStatusDownloading, JobStatusConverting, JobStatusAwaitingTranscription, JobStatusTranscribing} {
		legal = append(legal, [2]JobStatus{st, JobStatusFailed})
	}
	isLegal := func(from, to JobStatus) bool {
		for _, e := range legal {
			if e[0] == from && e[1] == to {
				return true
			}
		}
		return false
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			assert.Equal(t, isLegal(from, to), CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, to := range AllStatuses {
		assert.False(t, CanTransition(JobStatusReady, to))
		assert.False(t, CanTransition(JobStatusFailed, to))
	}
}

func TestAdvanceGuard(t *testing.T) {
	assert.ElementsMatch(t, []JobStatus{JobStatusQueued, JobStatusDownloading}, AdvanceGuard(JobStatusDownloading))
	assert.ElementsMatch(t, []JobStatus{JobStatusDownloading, JobStatusConverting}, AdvanceGuard(JobStatusConverting))
	assert.ElementsMatch(t, []JobStatus{JobStatusTranscribing}, AdvanceGuard(JobStatusReady))
	assert.NotContains(t, AdvanceGuard(JobStatusConverting), JobStatusTranscribing)
	assert.NotContains(t, AdvanceGuard(JobStatusFailed), JobStatusReady)
}

func TestIsForward(t *testing.T) {
	assert.True(t, IsForward(JobStatusQueued, JobStatusQueued))
	assert.True(t, IsForward(JobStatusDownloading, JobStatusAwaitingTranscription))
	assert.True(t, IsForward(JobStatusTranscribing, JobStatusFailed))
	assert.False(t, IsForward(JobStatusTranscribing, JobStatusConverting))
	assert.False(t, IsForward(JobStatusReady, JobStatusFailed))
	assert.False(t, IsForward(JobStatusFailed, JobStatusQueued))
}

func TestJobPatchValidate(t *testing.T) {
	p := &JobPatch{Status: Ptr(JobStatusAwaitingTranscription)}
	assert.ErrorIs(t, p.Validate(), ErrPreconditionFailed)

	p.NormalizedAudioKey = Ptr("jobs/2026/01/02/x/audio_16k.wav")
	assert.NoError(t, p.Validate())

	bad := &JobPatch{Status: Ptr(JobStatus("paused"))}
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestClampAndTruncate(t *testing.T) {
	assert.Equal(t, 0, ClampPercent(-5))
	assert.Equal(t, 100, ClampPercent(140))
	assert.Equal(t, 42, ClampPercent(42))

	long := make([]rune, 300)
	for i := range long {
		long[i] = 'é'
	}
	assert.Len(t, []rune(TruncateMessage(string(long))), MaxMessageLength)
	assert.Equal(t, "short", TruncateMessage("short"))
}

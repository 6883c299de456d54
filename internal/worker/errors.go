package worker

import (
	"fmt"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/pkg/errors"
)

// Failure kinds recorded in a failed job's message.
const (
	KindDownload    = "DownloadError"
	KindConvert     = "ConvertError"
	KindMissingTool = "MissingToolError"
	KindStorage     = "StorageError"
	KindTimeout     = "TimeoutError"
)

// ErrOverloaded is returned when the host is too busy to start a prepare task. It is not counted as
// a task failure.
var ErrOverloaded = errors.New("worker overloaded")

// ExternalError is a failure of a collaborator outside this process: a tool, the network or the
// object store.
type ExternalError struct {
	Kind string
	Err  error
}

func newExternalError(kind string, err error, format string, args ...interface{}) *ExternalError {
	if err == nil {
		return &ExternalError{Kind: kind, Err: errors.Errorf(format, args...)}
	}
	return &ExternalError{Kind: kind, Err: errors.Wrapf(err, format, args...)}
}

func (e *ExternalError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ExternalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExternalError) Cause() error {
	return errors.Cause(e.Err)
}

// FailureMessage renders err as the "Kind: detail" message stored on a failed job.
func FailureMessage(err error) string {
	var ext *ExternalError
	if errors.As(err, &ext) {
		return models.TruncateMessage(ext.Error())
	}
	return models.TruncateMessage(fmt.Sprintf("Error: %v", err))
}

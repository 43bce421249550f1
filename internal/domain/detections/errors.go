package detections

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a failure belongs to.
type Stage string

const (
	StageAuth    Stage = "auth"
	StageUpload  Stage = "upload"
	StageInfer   Stage = "infer"
	StagePersist Stage = "persist"
)

// ErrNoSession indicates no authenticated owner id is available; the
// pipeline must fail fast without any network call.
var ErrNoSession = errors.New("no authenticated session")

// ErrSuperseded indicates a newer submission started for the same owner
// while this one was suspended; its result must be discarded.
var ErrSuperseded = errors.New("submission superseded by a newer attempt")

// ErrUnreachable indicates the inference service could not be reached at all.
var ErrUnreachable = errors.New("inference service unreachable")

// ErrDetectionFailed indicates the inference service answered but reported
// a failure (success:false or a malformed payload).
var ErrDetectionFailed = errors.New("inference service returned failure")

// PipelineError wraps a step failure with the stage it happened in so the
// HTTP layer can map it to a distinct user-facing message.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StageOf returns the pipeline stage of err, or "" when err is not a
// pipeline failure.
func StageOf(err error) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}

package detections

import "time"

// SubmissionState enum
type SubmissionState string

const (
	StateIdle         SubmissionState = "idle"
	StateFileSelected SubmissionState = "file_selected"
	StateUploading    SubmissionState = "uploading"
	StateInferring    SubmissionState = "inferring"
	StatePersisting   SubmissionState = "persisting"
	StateComplete     SubmissionState = "complete"
	StateFailed       SubmissionState = "failed"
)

// Terminal reports whether no further transition can happen for an attempt.
func (s SubmissionState) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// SubmissionSnapshot is what the UI renders for the active attempt.
// A newer attempt supersedes an older one; the attempt id ties a snapshot
// to the submit call that produced it.
type SubmissionSnapshot struct {
	Attempt     uint64           `json:"attempt"`
	State       SubmissionState  `json:"state"`
	FileName    string           `json:"file_name,omitempty"`
	FailedStage Stage            `json:"failed_stage,omitempty"`
	Cause       string           `json:"cause,omitempty"`
	Record      *DetectionRecord `json:"record,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

package faults

import "time"

// SubmissionFault represents a persisted pipeline failure entry
type SubmissionFault struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Attempt     uint64    `json:"attempt"`
	Stage       string    `json:"stage"` // auth | upload | infer | persist
	FileName    string    `json:"file_name,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}

package detections

import (
	"time"
)

// ID tipe untuk DetectionRecord
type DetectionID string

// Classification enum
type Classification string

const (
	ClassificationReal Classification = "real"
	ClassificationFake Classification = "fake"
)

// FileType enum
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
)

// AnalysisDetails optional structured payload attached to a record
type AnalysisDetails struct {
	RealProbabilityPercent float64   `json:"real_probability"`
	FakeProbabilityPercent float64   `json:"fake_probability"`
	ModelName              string    `json:"model,omitempty"`
	ProcessedAt            time.Time `json:"processed_at"`
}

// Aggregate Root: DetectionRecord
// Immutable after creation; there is no update path, only delete.
type DetectionRecord struct {
	ID                DetectionID      `json:"id"`
	OwnerID           string           `json:"owner_id"`
	FileName          string           `json:"file_name"`
	FileType          FileType         `json:"file_type"`
	FileSizeBytes     int64            `json:"file_size"`
	MediaURL          string           `json:"media_url"`
	Classification    Classification   `json:"result"`
	ConfidencePercent float64          `json:"confidence"`
	Details           *AnalysisDetails `json:"analysis_details,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// Summary value object, untuk dashboard stats
type Summary struct {
	TotalScans   int `json:"total_scans"`
	RealDetected int `json:"real_detected"`
	FakeDetected int `json:"fake_detected"`
}

// ClassificationFromLabel maps the inference label to a Classification.
// Anything that is not "real" counts as fake.
func ClassificationFromLabel(label string) Classification {
	if label == string(ClassificationReal) {
		return ClassificationReal
	}
	return ClassificationFake
}

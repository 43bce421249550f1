package detections

import (
	"context"
	"io"
)

// CreateInput carries the fields of a record minus the server-assigned
// id and created_at.
type CreateInput struct {
	OwnerID           string
	FileName          string
	FileType          FileType
	FileSizeBytes     int64
	MediaURL          string
	Classification    Classification
	ConfidencePercent float64
	Details           *AnalysisDetails
}

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, in CreateInput) (*DetectionRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*DetectionRecord, error)
	Delete(ctx context.Context, ownerID string, id DetectionID) error
	Summary(ctx context.Context, ownerID string) (Summary, error)

	// tambahan paginate
	Paginate(ctx context.Context, ownerID string, page, pageSize int, result Classification) (PaginatedResult, error)
}

// Prediction hasil dari Detector, probabilities in [0,1]
type Prediction struct {
	Label           string
	Confidence      float64
	RealProbability float64
	FakeProbability float64
}

// Detector port (interface untuk remote inference)
type Detector interface {
	Classify(ctx context.Context, fileName string, file io.Reader) (Prediction, error)
}

// ObjectStore port (interface untuk penyimpanan media)
type ObjectStore interface {
	Upload(ctx context.Context, file io.Reader, key, contentType string, size int64) (string, error)
}

package faults

import (
	"context"
)

// Repository defines persistence for submission faults
type Repository interface {
	Save(ctx context.Context, f *SubmissionFault) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*SubmissionFault, error)
}

package insights

import "context"

// Repository port for persisting and querying insights
type Repository interface {
	Save(ctx context.Context, a *Insight) error
	Paginate(ctx context.Context, ownerID string, page, pageSize int) ([]*Insight, error)
	LatestByDetection(ctx context.Context, ownerID string, detectionID string) (*Insight, error)
}

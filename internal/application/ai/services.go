package ai

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavanborigi/deepfake-detect/internal/application"
	"github.com/pavanborigi/deepfake-detect/internal/domain/ai"
	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
	"github.com/pavanborigi/deepfake-detect/internal/domain/insights"
)

type Service struct {
	client ai.Client
	repo   insights.Repository
	clock  application.Clock
}

func NewService(client ai.Client, repo insights.Repository, clock application.Clock) *Service {
	return &Service{client: client, repo: repo, clock: clock}
}

// ExplainAndStore asks the AI client for an explanation of a stored
// detection and persists the result for later retrieval.
func (s *Service) ExplainAndStore(ctx context.Context, rec *domain.DetectionRecord) (*insights.Insight, error) {
	result, err := s.client.Explain(ctx, rec.MediaURL, string(rec.Classification), rec.ConfidencePercent)
	if err != nil {
		return nil, fmt.Errorf("explain detection %s: %w", rec.ID, err)
	}

	ins := &insights.Insight{
		ID:          insights.InsightID(uuid.New().String()),
		OwnerID:     rec.OwnerID,
		DetectionID: string(rec.ID),
		MediaURL:    rec.MediaURL,
		Result:      result,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Save(ctx, ins); err != nil {
		return nil, fmt.Errorf("save insight: %w", err)
	}
	return ins, nil
}

// ListInsights returns a page of stored insights, newest first.
func (s *Service) ListInsights(ctx context.Context, ownerID string, page, pageSize int) ([]*insights.Insight, error) {
	return s.repo.Paginate(ctx, ownerID, page, pageSize)
}

// LatestForDetection returns the most recent insight for one record.
func (s *Service) LatestForDetection(ctx context.Context, ownerID, detectionID string) (*insights.Insight, error) {
	return s.repo.LatestByDetection(ctx, ownerID, detectionID)
}

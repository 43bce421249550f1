package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/insights"
)

type InsightRepository struct{ db *sql.DB }

func NewInsightRepository(db *sql.DB) *InsightRepository { return &InsightRepository{db: db} }

// Save inserts an insight record
func (r *InsightRepository) Save(ctx context.Context, a *domain.Insight) error {
	const q = `
INSERT INTO detection_insights
  (id, owner_id, detection_id, media_url, result_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  owner_id = EXCLUDED.owner_id,
  detection_id = EXCLUDED.detection_id,
  media_url = EXCLUDED.media_url,
  result_json = EXCLUDED.result_json;`

	owner := stringOrDash(a.OwnerID)
	mediaURL := stringOrDash(a.MediaURL)
	result := a.Result
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q, a.ID, owner, a.DetectionID, mediaURL, result, createdAt)
	return err
}

// Paginate returns a page of insight records ordered by created_at desc
func (r *InsightRepository) Paginate(ctx context.Context, ownerID string, page, pageSize int) ([]*domain.Insight, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, owner_id, detection_id, media_url, result_json, created_at
FROM detection_insights
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, ownerID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Insight
	for rows.Next() {
		var a domain.Insight
		var created time.Time
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.DetectionID, &a.MediaURL, &a.Result, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = created
		out = append(out, &a)
	}
	return out, rows.Err()
}

// LatestByDetection returns the most recent insight for one detection
func (r *InsightRepository) LatestByDetection(ctx context.Context, ownerID string, detectionID string) (*domain.Insight, error) {
	const q = `
SELECT id, owner_id, detection_id, media_url, result_json, created_at
FROM detection_insights
WHERE owner_id=$1 AND detection_id=$2
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	var a domain.Insight
	var created time.Time
	if err := r.db.QueryRowContext(ctx, q, ownerID, detectionID).Scan(
		&a.ID, &a.OwnerID, &a.DetectionID, &a.MediaURL, &a.Result, &created,
	); err != nil {
		return nil, err
	}
	a.CreatedAt = created
	return &a, nil
}

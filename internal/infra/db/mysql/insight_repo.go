package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/insights"
)

type InsightRepository struct {
	db *sql.DB
}

func NewInsightRepository(db *sql.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// Save inserts an insight record
func (r *InsightRepository) Save(ctx context.Context, a *domain.Insight) error {
	const q = `
INSERT INTO detection_insights
  (id, owner_id, detection_id, media_url, result_json, created_at)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  owner_id=VALUES(owner_id), detection_id=VALUES(detection_id), media_url=VALUES(media_url), result_json=VALUES(result_json);
`
	// Ensure non-nullable fields have safe defaults
	owner := stringOrDash(a.OwnerID)
	mediaURL := stringOrDash(a.MediaURL)
	result := a.Result
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
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
WHERE owner_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
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
WHERE owner_id=? AND detection_id=?
ORDER BY created_at DESC, id DESC
LIMIT 1;
`
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

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
)

type DetectionRepository struct{ db *sql.DB }

func NewDetectionRepository(db *sql.DB) *DetectionRepository { return &DetectionRepository{db: db} }

const detectionColumns = `id, owner_id, file_name, file_type, file_size, media_url,
       result, confidence, real_probability, fake_probability, model_name, processed_at, created_at`

// Create inserts a new record with a server-assigned id and created_at
func (r *DetectionRepository) Create(ctx context.Context, in domain.CreateInput) (*domain.DetectionRecord, error) {
	if in.OwnerID == "" {
		return nil, domain.ErrNoSession
	}

	const q = `
INSERT INTO detections
(id, owner_id, file_name, file_type, file_size, media_url,
 result, confidence, real_probability, fake_probability, model_name, processed_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`

	id := uuid.New().String()
	createdAt := time.Now().UTC()

	var realP, fakeP sql.NullFloat64
	var model sql.NullString
	var processed sql.NullTime
	if in.Details != nil {
		realP = sql.NullFloat64{Float64: in.Details.RealProbabilityPercent, Valid: true}
		fakeP = sql.NullFloat64{Float64: in.Details.FakeProbabilityPercent, Valid: true}
		model = sql.NullString{String: in.Details.ModelName, Valid: in.Details.ModelName != ""}
		processed = sql.NullTime{Time: in.Details.ProcessedAt, Valid: !in.Details.ProcessedAt.IsZero()}
	}

	_, err := r.db.ExecContext(ctx, q,
		id, in.OwnerID, stringOrDash(in.FileName), string(in.FileType), in.FileSizeBytes, in.MediaURL,
		string(in.Classification), in.ConfidencePercent, realP, fakeP, model, processed, createdAt,
	)
	if err != nil {
		return nil, err
	}

	return &domain.DetectionRecord{
		ID:                domain.DetectionID(id),
		OwnerID:           in.OwnerID,
		FileName:          in.FileName,
		FileType:          in.FileType,
		FileSizeBytes:     in.FileSizeBytes,
		MediaURL:          in.MediaURL,
		Classification:    in.Classification,
		ConfidencePercent: in.ConfidencePercent,
		Details:           in.Details,
		CreatedAt:         createdAt,
	}, nil
}

// ListByOwner returns all records for one owner, newest first
func (r *DetectionRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.DetectionRecord, error) {
	q := `
SELECT ` + detectionColumns + `
FROM detections
WHERE owner_id=$1 ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.DetectionRecord{}
	for rows.Next() {
		rec, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes one record scoped by owner
func (r *DetectionRepository) Delete(ctx context.Context, ownerID string, id domain.DetectionID) error {
	const q = `DELETE FROM detections WHERE owner_id=$1 AND id=$2;`
	res, err := r.db.ExecContext(ctx, q, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Summary counts total/real/fake records
func (r *DetectionRepository) Summary(ctx context.Context, ownerID string) (domain.Summary, error) {
	const q = `
SELECT COUNT(*) AS total_scans,
       COALESCE(SUM(CASE WHEN result='real' THEN 1 ELSE 0 END),0) AS real_detected,
       COALESCE(SUM(CASE WHEN result='fake' THEN 1 ELSE 0 END),0) AS fake_detected
FROM detections
WHERE owner_id=$1;`
	var s domain.Summary
	if err := r.db.QueryRowContext(ctx, q, ownerID).Scan(&s.TotalScans, &s.RealDetected, &s.FakeDetected); err != nil {
		return domain.Summary{}, err
	}
	return s, nil
}

// Paginate with offset + limit, optional result filter
func (r *DetectionRepository) Paginate(ctx context.Context, ownerID string, page, pageSize int, result domain.Classification) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `
SELECT ` + detectionColumns + `
FROM detections
WHERE owner_id=$1`
	args := []interface{}{ownerID}

	if result != "" {
		query += fmt.Sprintf(" AND result = $%d", len(args)+1)
		args = append(args, string(result))
	}

	query += fmt.Sprintf("\nORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying detections: %w", err)
	}
	defer rows.Close()

	var recs []*domain.DetectionRecord
	for rows.Next() {
		rec, err := scanDetection(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	total, err := r.count(ctx, ownerID, result)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       recs,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (r *DetectionRepository) count(ctx context.Context, ownerID string, result domain.Classification) (int64, error) {
	query := "SELECT COUNT(*) FROM detections WHERE owner_id = $1"
	args := []interface{}{ownerID}
	if result != "" {
		query += " AND result = $2"
		args = append(args, string(result))
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDetection(row rowScanner) (*domain.DetectionRecord, error) {
	var rec domain.DetectionRecord
	var realP, fakeP sql.NullFloat64
	var model sql.NullString
	var processed sql.NullTime
	if err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.FileName, &rec.FileType, &rec.FileSizeBytes, &rec.MediaURL,
		&rec.Classification, &rec.ConfidencePercent, &realP, &fakeP, &model, &processed, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if realP.Valid || fakeP.Valid || model.Valid {
		rec.Details = &domain.AnalysisDetails{
			RealProbabilityPercent: realP.Float64,
			FakeProbabilityPercent: fakeP.Float64,
			ModelName:              model.String,
			ProcessedAt:            processed.Time,
		}
	}
	return &rec, nil
}

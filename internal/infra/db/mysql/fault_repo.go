package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/faults"
)

type FaultRepository struct {
	db *sql.DB
}

func NewFaultRepository(db *sql.DB) *FaultRepository { return &FaultRepository{db: db} }

func (r *FaultRepository) Save(ctx context.Context, f *domain.SubmissionFault) error {
	const q = `
INSERT INTO submission_faults
  (owner_id, attempt, stage, file_name, message, details_json, created_at)
VALUES (?,?,?,?,?,?,?)
`
	owner := stringOrDash(f.OwnerID)
	stage := stringOrDash(f.Stage)
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := f.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, owner, f.Attempt, stage, f.FileName, msg, details, created)
	return err
}

func (r *FaultRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.SubmissionFault, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, owner_id, attempt, stage, file_name, message, details_json, created_at
FROM submission_faults
WHERE owner_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.SubmissionFault
	for rows.Next() {
		var f domain.SubmissionFault
		var created time.Time
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Attempt, &f.Stage, &f.FileName, &f.Message, &f.DetailsJSON, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = created
		out = append(out, &f)
	}
	return out, rows.Err()
}

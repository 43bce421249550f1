package insights

import "time"

// InsightID identifier type
type InsightID string

// Insight represents an AI explanation of a detection, stored for auditing and retrieval
type Insight struct {
	ID          InsightID `json:"id"`
	OwnerID     string    `json:"owner_id"`
	DetectionID string    `json:"detection_id"`
	MediaURL    string    `json:"media_url"`
	Result      string    `json:"result"` // JSON string from AI
	CreatedAt   time.Time `json:"created_at"`
}

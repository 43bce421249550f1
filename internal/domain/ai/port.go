package ai

import "context"

// Client produces a structured explanation of a classified media file.
type Client interface {
	Explain(ctx context.Context, mediaURL, result string, confidencePercent float64) (string, error)
}

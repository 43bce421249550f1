package prompt

import "fmt"

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a media forensics analyst. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- verdict must be either "real" or "fake" and must match the verdict given in the user message; you explain, you do not re-classify.
- indicators is an array of objects; include at least a title and a summary. Keep items concise.
- If the actual media content is not provided in the prompt, reason from the verdict, confidence, and media type safely and conservatively.

Schema (example with empty values):
{
  "media_url": "<string>",
  "verdict": "<real|fake>",
  "confidence": 0,
  "indicators": [
    {
      "title": "<string>",
      "summary": "<string>"
    }
  ],
  "advice": "<string>"
}`
}

// GetUserPrompt builds a compact user message around a classified media file.
func GetUserPrompt(mediaURL, result string, confidencePercent float64) string {
	return fmt.Sprintf(
		"A detection model classified the media at this URL as %q with %.1f%% confidence. Explain what typically drives such a verdict and respond with the JSON per schema. URL: %s",
		result, confidencePercent, mediaURL,
	)
}

// Explanation matches the schema used by the system prompt.
type Explanation struct {
	MediaURL   string  `json:"media_url"`
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Indicators []struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	} `json:"indicators"`
	Advice string `json:"advice"`
}

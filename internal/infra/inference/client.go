package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
)

// Client talks to the detection model API: POST <base>/api/detect with a
// multipart body carrying the raw file in field "file". It does no retries;
// retry policy belongs to the caller.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type detectResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    *struct {
		Prediction      string  `json:"prediction"`
		Confidence      float64 `json:"confidence"`
		RealProbability float64 `json:"real_probability"`
		FakeProbability float64 `json:"fake_probability"`
	} `json:"data,omitempty"`
}

// Classify sends the file and normalizes the response. Transport failures
// map to ErrUnreachable, everything the service itself rejects (non-2xx,
// success:false, missing fields) maps to ErrDetectionFailed, so callers can
// show distinct messages.
func (c *Client) Classify(ctx context.Context, fileName string, file io.Reader) (domain.Prediction, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return domain.Prediction{}, fmt.Errorf("copy media data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.Prediction{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/detect", body)
	if err != nil {
		return domain.Prediction{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Prediction{}, fmt.Errorf("%w: invalid response body (status %d)", domain.ErrDetectionFailed, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return domain.Prediction{}, fmt.Errorf("%w: %s", domain.ErrDetectionFailed, msg)
	}
	if out.Data == nil || out.Data.Prediction == "" {
		return domain.Prediction{}, fmt.Errorf("%w: response missing prediction data", domain.ErrDetectionFailed)
	}

	return domain.Prediction{
		Label:           out.Data.Prediction,
		Confidence:      out.Data.Confidence,
		RealProbability: out.Data.RealProbability,
		FakeProbability: out.Data.FakeProbability,
	}, nil
}

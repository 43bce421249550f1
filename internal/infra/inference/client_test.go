package inference

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
)

const detectURL = "http://model.local/api/detect"

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func TestClassify_Success(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodPost, detectURL,
		httpmock.NewStringResponder(http.StatusOK, `{
			"success": true,
			"data": {
				"prediction": "fake",
				"confidence": 0.947,
				"real_probability": 0.053,
				"fake_probability": 0.947
			}
		}`))

	client := NewClient("http://model.local", 5*time.Second)
	pred, err := client.Classify(context.Background(), "clip.mp4", strings.NewReader("video-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "fake", pred.Label)
	assert.InDelta(t, 0.947, pred.Confidence, 0.0001)
	assert.InDelta(t, 0.053, pred.RealProbability, 0.0001)
	assert.InDelta(t, 0.947, pred.FakeProbability, 0.0001)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestClassify_TrailingSlashBaseURL(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodPost, detectURL,
		httpmock.NewStringResponder(http.StatusOK, `{
			"success": true,
			"data": {"prediction": "real", "confidence": 0.81, "real_probability": 0.81, "fake_probability": 0.19}
		}`))

	client := NewClient("http://model.local/", 5*time.Second)
	pred, err := client.Classify(context.Background(), "photo.jpg", strings.NewReader("image-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "real", pred.Label)
}

func TestClassify_SendsMultipartFileField(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodPost, detectURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))
			files := req.MultipartForm.File["file"]
			require.Len(t, files, 1)
			assert.Equal(t, "photo.jpg", files[0].Filename)
			return httpmock.NewStringResponse(http.StatusOK, `{
				"success": true,
				"data": {"prediction": "real", "confidence": 0.9, "real_probability": 0.9, "fake_probability": 0.1}
			}`), nil
		})

	client := NewClient("http://model.local", 5*time.Second)
	_, err := client.Classify(context.Background(), "photo.jpg", strings.NewReader("image-bytes"))
	require.NoError(t, err)
}

func TestClassify_ServiceReportsFailure(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodPost, detectURL,
		httpmock.NewStringResponder(http.StatusOK, `{"success": false, "error": "no face detected"}`))

	client := NewClient("http://model.local", 5*time.Second)
	_, err := client.Classify(context.Background(), "photo.jpg", strings.NewReader("image-bytes"))

	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrDetectionFailed)
	assert.Contains(t, err.Error(), "no face detected")
}

func TestClassify_HTTPError(t *testing.T) {
	setupHTTPMock(t)

	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"bad_request", http.StatusBadRequest, `{"success": false, "error": "unsupported format"}`},
		{"internal_server_error", http.StatusInternalServerError, `{"success": false}`},
		{"service_overloaded", http.StatusTooManyRequests, `{"success": false, "error": "busy"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Reset()
			httpmock.RegisterResponder(http.MethodPost, detectURL,
				httpmock.NewStringResponder(tt.statusCode, tt.body))

			client := NewClient("http://model.local", 5*time.Second)
			_, err := client.Classify(context.Background(), "photo.jpg", strings.NewReader("x"))

			require.Error(t, err)
			require.ErrorIs(t, err, domain.ErrDetectionFailed)
			assert.NotErrorIs(t, err, domain.ErrUnreachable)
		})
	}
}

func TestClassify_InvalidJSON(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodPost, detectURL,
		httpmock.NewStringResponder(http.StatusOK, `{invalid json`))

	client := NewClient("http://model.local", 5*time.Second)
	_, err := client.Classify(context.Background(), "photo.jpg", strings.NewReader("x"))

	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrDetectionFailed)
}

func TestClassify_MissingPredictionData(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodPost, detectURL,
		httpmock.NewStringResponder(http.StatusOK, `{"success": true}`))

	client := NewClient("http://model.local", 5*time.Second)
	_, err := client.Classify(context.Background(), "photo.jpg", strings.NewReader("x"))

	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrDetectionFailed)
}

func TestClassify_Unreachable(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodPost, detectURL,
		httpmock.NewErrorResponder(errors.New("connection refused")))

	client := NewClient("http://model.local", 5*time.Second)
	_, err := client.Classify(context.Background(), "photo.jpg", strings.NewReader("x"))

	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrUnreachable)
	assert.NotErrorIs(t, err, domain.ErrDetectionFailed)
}

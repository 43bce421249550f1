package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		wantErr     bool
	}{
		{"image_ok", "image/jpeg", 1024, false},
		{"video_ok", "video/mp4", 10 << 20, false},
		{"at_limit", "image/png", MaxUploadBytes, false},
		{"over_limit", "video/mp4", MaxUploadBytes + 1, true},
		{"empty_file", "image/png", 0, true},
		{"negative_size", "image/png", -1, true},
		{"pdf_rejected", "application/pdf", 1024, true},
		{"text_rejected", "text/plain", 10, true},
		{"no_type", "", 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.contentType, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("clip.mp4"))
	assert.NoError(t, ValidateFileName("selfie (2).jpg"))

	for _, bad := range []string{"", "   ", "../etc/passwd", "a/b.png", `a\b.png`, "nul\x00.jpg", "line\nbreak.png"} {
		assert.Error(t, ValidateFileName(bad), "name %q", bad)
	}
}

func TestValidateOwnerID(t *testing.T) {
	assert.NoError(t, ValidateOwnerID("alice"))
	assert.NoError(t, ValidateOwnerID("user_42-a"))

	assert.Error(t, ValidateOwnerID(""))
	assert.Error(t, ValidateOwnerID("has space"))
	assert.Error(t, ValidateOwnerID("semi;colon"))
}

func TestValidateDetectionID(t *testing.T) {
	assert.NoError(t, ValidateDetectionID("f47ac10b-58cc-4372-a567-0e02b2c3d479"))

	assert.Error(t, ValidateDetectionID(""))
	assert.Error(t, ValidateDetectionID("not-a-uuid"))
	assert.Error(t, ValidateDetectionID("F47AC10B-58CC-4372-A567-0E02B2C3D479"))
}

func TestValidateResultFilter(t *testing.T) {
	for _, raw := range []string{"", "all"} {
		got, err := ValidateResultFilter(raw)
		assert.NoError(t, err)
		assert.Empty(t, got)
	}
	for _, raw := range []string{"real", "fake"} {
		got, err := ValidateResultFilter(raw)
		assert.NoError(t, err)
		assert.Equal(t, raw, got)
	}
	_, err := ValidateResultFilter("deepfake")
	assert.Error(t, err)
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 20, ValidateLimit(-5))
	assert.Equal(t, 50, ValidateLimit(50))
	assert.Equal(t, 100, ValidateLimit(100))
	assert.Equal(t, 100, ValidateLimit(5000))
}

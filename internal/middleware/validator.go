package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Upload validation, enforced before any network call is made

// MaxUploadBytes is the largest accepted media file (50 MiB)
const MaxUploadBytes = 50 << 20

// ValidateUpload checks the submission constraints: MIME type must be image
// or video and the size must not exceed MaxUploadBytes.
func ValidateUpload(contentType string, sizeBytes int64) error {
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		return fmt.Errorf("unsupported media type: %s (allowed: image/*, video/*)", contentType)
	}
	if sizeBytes <= 0 {
		return fmt.Errorf("empty file")
	}
	if sizeBytes > MaxUploadBytes {
		return fmt.Errorf("file too large: %d bytes (max %d)", sizeBytes, MaxUploadBytes)
	}
	return nil
}

// ValidateFileName rejects names that could smuggle path segments into
// storage keys.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	dangerous := []string{"..", "/", "\\", "\x00", "\n", "\r"}
	for _, d := range dangerous {
		if strings.Contains(name, d) {
			return fmt.Errorf("invalid characters in file name")
		}
	}
	return nil
}

// ValidateOwnerID validates owner id format
func ValidateOwnerID(owner string) error {
	if owner == "" {
		return fmt.Errorf("owner ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, owner)
	if !matched {
		return fmt.Errorf("invalid owner ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateDetectionID validates record id format (UUID)
func ValidateDetectionID(id string) error {
	if id == "" {
		return fmt.Errorf("detection ID cannot be empty")
	}

	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, id)
	if !matched {
		return fmt.Errorf("invalid detection ID format")
	}

	return nil
}

// ValidateResultFilter normalizes the history filter value
func ValidateResultFilter(result string) (string, error) {
	switch result {
	case "", "all":
		return "", nil
	case "real", "fake":
		return result, nil
	default:
		return "", fmt.Errorf("invalid result filter: %s (allowed: all, real, fake)", result)
	}
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

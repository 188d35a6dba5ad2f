package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures of subprocess tools such as yt-dlp.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed inputs or responses.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing credentials or settings; stages hit by
	// it are skipped for the remainder of the run rather than retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks absent remote resources.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks retryable network or service failures.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsConfiguration reports whether the error stems from missing configuration,
// meaning the whole stage should be skipped for the run.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

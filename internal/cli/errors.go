package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrUnknownSource indicates --source names no configured source.
	ErrUnknownSource = errors.New("unknown source")

	// ErrFileNotFound indicates a configured input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrSettingMissing indicates a stage ran without a setting it needs.
	ErrSettingMissing = errors.New("required setting missing")

	// ErrExtractorMissing indicates features.extractor is not configured.
	ErrExtractorMissing = errors.New("no feature extractor configured (features.extractor)")

	// ErrAuditFailed indicates audit --strict found absent files.
	ErrAuditFailed = errors.New("resolved paths missing on disk")
)

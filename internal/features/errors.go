package features

import "errors"

var (
	// ErrInsufficientGroups indicates too few distinct speakers to form
	// grouped cross-validation folds without leakage.
	ErrInsufficientGroups = errors.New("insufficient groups for grouped cross-validation")

	// ErrExtractFailed indicates the external extractor could not produce a vector.
	ErrExtractFailed = errors.New("feature extraction failed")

	// ErrFeatureLength indicates a vector whose length differs from the rest.
	ErrFeatureLength = errors.New("feature vector length mismatch")

	// ErrEmptyDataset indicates a dataset with no rows.
	ErrEmptyDataset = errors.New("empty dataset")
)

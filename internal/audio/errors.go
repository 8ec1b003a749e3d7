package audio

import "errors"

// ErrProbeFailed indicates FFmpeg could not report a file's duration.
var ErrProbeFailed = errors.New("audio probe failed")

// ErrTrimFailed indicates FFmpeg failed to cut a segment.
var ErrTrimFailed = errors.New("audio trim failed")

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

package segment

import "errors"

var (
	// ErrInvalidSource indicates a source definition missing a required field.
	ErrInvalidSource = errors.New("invalid source")

	// ErrMissingAudio indicates the downloaded clip for a row is absent.
	ErrMissingAudio = errors.New("source audio not found")

	// ErrEmptyClip indicates a clip whose probed duration is under one second.
	ErrEmptyClip = errors.New("clip has no audio")
)

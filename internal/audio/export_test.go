package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput

// ParseTimeComponents exports parseTimeComponents for testing.
var ParseTimeComponents = parseTimeComponents

// FormatFFmpegTime exports formatFFmpegTime for testing.
var FormatFFmpegTime = formatFFmpegTime

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter

// DirMaker exports dirMaker interface for testing.
type DirMaker = dirMaker

package metadata

import "errors"

// ErrCardinalityViolation indicates a join key that must be unique on the
// right-hand table appears more than once. The master sheet needs correcting
// before the merge can run.
var ErrCardinalityViolation = errors.New("join key is not unique")

package validtimes

import "errors"

// ErrMalformedTimeToken indicates a valid-times cell contains a token that is not
// a well-formed "mm.ss-mm.ss" range.
var ErrMalformedTimeToken = errors.New("malformed time token")

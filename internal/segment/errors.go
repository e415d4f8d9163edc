package segment

import "errors"

// Construction errors. Both abort a segmentation before anything executes.
var (
	ErrCycle     = errors.New("circular dependency between segments")
	ErrMalformed = errors.New("malformed segment set")
)

package model

import (
	"errors"
	"fmt"
)

// DuplicateCornerError reports a second, conflicting write to an
// (arc, corner) key. This is an internal consistency bug in sweep
// generation: correct sweeps produce each key exactly once, so the
// aggregator fails loudly instead of overwriting.
type DuplicateCornerError struct {
	Cell      string
	Arc       ArcID
	CornerKey string
}

func (e *DuplicateCornerError) Error() string {
	return fmt.Sprintf("duplicate corner write for cell %s arc %d corner %s with differing value",
		e.Cell, e.Arc, e.CornerKey[:12])
}

// IsDuplicateCorner reports whether err is a DuplicateCornerError,
// unwrapping as needed.
func IsDuplicateCorner(err error) bool {
	var de *DuplicateCornerError
	return errors.As(err, &de)
}

// UnknownArcError reports an insert against an arc the model was not
// constructed with.
type UnknownArcError struct {
	Cell string
	Arc  ArcID
}

func (e *UnknownArcError) Error() string {
	return fmt.Sprintf("unknown arc %d for cell %s", e.Arc, e.Cell)
}

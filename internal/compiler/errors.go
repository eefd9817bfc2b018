package compiler

import "github.com/rotisserie/eris"

var (
	// ErrMultipleInstances is returned when a single or virtual page type has
	// more than one page. It points at a data problem and aborts the pass.
	ErrMultipleInstances = eris.New("multiple instances for singular page type")
	// ErrDuplicatePath is returned when two outputs of one pass claim the same
	// logical path.
	ErrDuplicatePath = eris.New("duplicate output path")
	// ErrEmptyPath is returned when a path generator yields an empty path.
	ErrEmptyPath = eris.New("generated path is empty")
)

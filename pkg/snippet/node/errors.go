package node

import "errors"

// Template construction errors
var (
	// ErrMalformedTemplate indicates a structural defect found at template
	// construction time: duplicate or out-of-range jump-index, a Choice
	// with no alternatives, or a dependency cycle.
	ErrMalformedTemplate = errors.New("malformed template")

	// ErrUnresolvedReference indicates a node reference (sibling index or
	// absolute path) that does not resolve in its scope.
	ErrUnresolvedReference = errors.New("unresolved node reference")
)

// Session errors
var (
	// ErrSessionClosed indicates an operation on a session that already
	// exited, normally or by abort.
	ErrSessionClosed = errors.New("session closed")
)

// GeneratorError wraps a failure raised by a Function evaluator or Dynamic
// generator. The prior content of the node is left in place when it occurs.
type GeneratorError struct {
	// Path is the absolute jump-index path of the failing node.
	Path []int

	// Err is the underlying failure, or the recovered panic value wrapped
	// as an error.
	Err error
}

func (e *GeneratorError) Error() string {
	return "generator failed at " + PathString(e.Path) + ": " + e.Err.Error()
}

func (e *GeneratorError) Unwrap() error {
	return e.Err
}

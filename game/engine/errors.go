package engine

import (
	"errors"
	"fmt"
)

var (
	ErrMapFormat        = errors.New("map format error")
	ErrMapSemantic      = errors.New("map semantic error")
	ErrUnknownDirection = errors.New("unknown direction")
	ErrInvalidBoard     = errors.New("invalid board")
)

// MapFormatError reports a structural problem in map text. Line and Col are
// 1-based character coordinates; zero means the problem is not local.
type MapFormatError struct {
	Line   int
	Col    int
	Reason string
}

func (e *MapFormatError) Error() string {
	switch {
	case e.Line > 0 && e.Col > 0:
		return fmt.Sprintf("map format: line %d, col %d: %s", e.Line, e.Col, e.Reason)
	case e.Line > 0:
		return fmt.Sprintf("map format: line %d: %s", e.Line, e.Reason)
	}
	return "map format: " + e.Reason
}

func (e *MapFormatError) Unwrap() error { return ErrMapFormat }

// MapSemanticError reports a well-formed map that cannot be played, such as
// one without a player or goal.
type MapSemanticError struct {
	Reason string
}

func (e *MapSemanticError) Error() string { return "map semantic: " + e.Reason }

func (e *MapSemanticError) Unwrap() error { return ErrMapSemantic }

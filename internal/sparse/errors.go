package sparse

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMatrix is returned when a coordinate matrix is structurally
	// inconsistent (array lengths differ, indices fall outside the shape).
	ErrInvalidMatrix = errors.New("sparse: invalid matrix")

	// ErrOutOfRange matches every *RangeError.
	ErrOutOfRange = errors.New("sparse: index out of range")

	// ErrUnknownFormat is returned for storage layouts other than coo/csr/csc.
	ErrUnknownFormat = errors.New("sparse: unknown storage format")
)

// RangeError describes a rejected index or range query.
type RangeError struct {
	Array  string
	Lo, Hi int // Hi == Lo+1 for single-index queries
	Limit  int // exclusive upper limit that applied
	Single bool
}

func (e *RangeError) Error() string {
	if e.Single {
		return fmt.Sprintf("sparse: %s index %d outside [0, %d)", e.Array, e.Lo, e.Limit)
	}
	if e.Lo >= e.Hi {
		return fmt.Sprintf("sparse: %s range [%d, %d) is empty or reversed", e.Array, e.Lo, e.Hi)
	}
	return fmt.Sprintf("sparse: %s range [%d, %d) outside [0, %d)", e.Array, e.Lo, e.Hi, e.Limit)
}

func (e *RangeError) Is(target error) bool { return target == ErrOutOfRange }

package lane

import (
	"errors"
	"fmt"
)

// PoolFullError is returned when the queue is at capacity.
type PoolFullError struct {
	Pool     string
	Capacity int
}

func (e *PoolFullError) Error() string {
	return fmt.Sprintf("pool %s is full (capacity: %d)", e.Pool, e.Capacity)
}

// PoolClosedError is returned when submitting to a pool that is not running.
type PoolClosedError struct {
	Pool string
}

func (e *PoolClosedError) Error() string {
	return fmt.Sprintf("pool %s is closed", e.Pool)
}

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	TaskID string
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.TaskID, e.Value)
}

// IsPoolFullError returns true if err is or wraps a PoolFullError.
func IsPoolFullError(err error) bool {
	var target *PoolFullError
	return errors.As(err, &target)
}

// IsPoolClosedError returns true if err is or wraps a PoolClosedError.
func IsPoolClosedError(err error) bool {
	var target *PoolClosedError
	return errors.As(err, &target)
}

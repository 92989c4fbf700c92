package task

import "errors"

var (
	// ErrNotFound is returned when a task (or subresource) does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidRule is returned for a recurrence rule outside the enumerated set.
	ErrInvalidRule = errors.New("invalid recurrence rule")

	// ErrNotRecurring is returned when the occurrence generator is invoked on a
	// non-recurring task. This signals a bug in a completion call site, not a
	// user-facing condition.
	ErrNotRecurring = errors.New("task is not recurring")

	// ErrNoDueDate is returned when a recurring task is missing its due date.
	ErrNoDueDate = errors.New("recurring task has no due date")
)

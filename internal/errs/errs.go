package errs

import (
	"errors"
)

var (
	ErrUnknownTrigger       = errors.New("trigger not defined for machine")
	ErrInvalidTransition    = errors.New("transition not allowed from current state")
	ErrActionNotAllowed     = errors.New("action not allowed in current state")
	ErrCommandNotAllowed    = errors.New("command not allowed in current state")
	ErrCapabilityValidation = errors.New("capability validation failed")
)

var (
	ErrQueueFull         = errors.New("queue is full")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTaskResult = errors.New("invalid task result encoding")
	ErrInvalidUniqueID   = errors.New("invalid unique id encoding")
)

var (
	ErrStoreKeyNotFound = errors.New("store key not found")
)

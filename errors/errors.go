package errors

import "fmt"

var (
	ErrChannelUnavailable = fmt.Errorf("realtime channel unavailable")
	ErrMalformedMessage   = fmt.Errorf("malformed realtime message")
	ErrConflictUnresolved = fmt.Errorf("conflict resolution cancelled")
	ErrHandoffNotFound    = fmt.Errorf("handoff token expired or unknown")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

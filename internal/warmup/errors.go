package warmup

import "errors"

// Sentinel errors for the warmup service layer.
var (
	ErrNotFound      = errors.New("warmup state not found for domain")
	ErrAlreadyActive = errors.New("warmup already active for domain")
	ErrNotActive     = errors.New("warmup is not active for domain")
	ErrCompleted     = errors.New("warmup already completed for domain")
)

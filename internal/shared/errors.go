package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Synchronizer errors. Every remote failure the store surfaces wraps one
	// of these so callers can branch on kind without parsing messages.
	ErrCreation        = fmt.Errorf("project creation failed")
	ErrTransientFetch  = fmt.Errorf("transient fetch failure")
	ErrProjectNotFound = fmt.Errorf("project not found")
	ErrTaskFailed      = fmt.Errorf("generation task failed")
	ErrAPIRequest      = fmt.Errorf("API request failed")
	ErrNoActiveProject = fmt.Errorf("no active project")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

package domain

// ValidationError is a recoverable, user-facing problem with a command.
// The engine renders it as turn text; it never ends the session.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

package web

// shutdownError is a type used to help with the graceful termination of
// the service when an integrity issue is identified by a handler.
type shutdownError struct {
	Message string
}

// NewShutdownError returns an error that causes the framework to signal a
// graceful shutdown.
func NewShutdownError(message string) error {
	return &shutdownError{message}
}

// Error implements the error interface.
func (s *shutdownError) Error() string {
	return s.Message
}

// IsShutdown checks to see if the shutdown error is contained in the
// specified error value.
func IsShutdown(err error) bool {
	_, ok := err.(*shutdownError)
	return ok
}

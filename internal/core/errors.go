package core

import "errors"

// Ingestion errors. These surface to the submitter and are never retried.
var (
	ErrUnauthorized         = errors.New("webhook signature verification failed")
	ErrInvalidPayload       = errors.New("webhook payload is malformed")
	ErrUnsupportedEventType = errors.New("webhook event type is not supported")
)

// ErrEventIgnored marks a well-formed delivery that carries no work for
// the pipeline, such as a pull request being labeled. Ignored events are
// acknowledged, not rejected.
var ErrEventIgnored = errors.New("event carries no work")

// ErrJobNotFound is the distinguished result for querying a job id that
// never existed or has been evicted past its retention window.
var ErrJobNotFound = errors.New("job not found")

// RecoverableError marks an evaluation failure worth retrying, such as a
// transient collaborator timeout. The queue retries the job up to its
// attempt limit before failing it.
type RecoverableError struct {
	Err error
}

func (e *RecoverableError) Error() string { return "recoverable: " + e.Err.Error() }
func (e *RecoverableError) Unwrap() error { return e.Err }

// FatalError marks an evaluation failure that retrying cannot fix, such
// as a malformed change set. The job fails immediately.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Recoverable reports whether err should be retried. Timeouts and
// explicitly recoverable errors qualify; fatal errors never do.
func Recoverable(err error) bool {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false
	}
	var rec *RecoverableError
	return errors.As(err, &rec)
}

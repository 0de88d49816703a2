package smoketest

import "errors"

var (
	// ErrUnhealthy is returned when /healthz does not answer 200.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrUnexpectedStatus is returned for an HTTP status the test did not expect.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrVerification is returned when the service output is inconsistent with the request.
	ErrVerification = errors.New("verification failed")
	// ErrInvalidConfig is returned for smoke test settings that cannot run.
	ErrInvalidConfig = errors.New("invalid smoke test config")
)

package ai

import "fmt"

// TimeoutError indicates an attempt hit its per-call deadline. Retried
// internally; terminal once retries are exhausted.
type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation call timed out after %d attempt(s)", e.Attempts)
}

// HTTPError indicates the provider answered with a non-2xx status.
type HTTPError struct {
	Status   int
	Attempts int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("generation call failed with HTTP %d after %d attempt(s)", e.Status, e.Attempts)
}

// NetworkError indicates the request never produced an HTTP response.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("generation call network failure after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

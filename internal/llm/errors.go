package llm

import "fmt"

// AuthError reports a missing API key at client construction time.
type AuthError struct {
	EnvVar string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("llm: API key environment variable %s is not set", e.EnvVar)
}

// TransportError wraps the final provider error after the retry budget is
// exhausted.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("llm: request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

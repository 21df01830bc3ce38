package services

import "fmt"

// TransportError reports an HTTP-level or connectivity failure reaching a
// remote service. A failed initial worklist fetch is fatal to a run; any
// other occurrence is logged and the affected item is marked failed.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitError is the distinguished failure returned when Instagram asks
// us to back off. Callers apply a longer cool-down than for generic errors;
// it is never retried in-band.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return "rate limited, please wait a few minutes"
	}
	return e.Message
}

// ConfigError reports missing required configuration. It is fatal and is
// surfaced before any network activity.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("required configuration missing: %s", e.Setting)
}

// NotFoundError reports a lookup that yielded zero results, such as a
// location search with no matches. It fails only the call that raised it.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no results found for %q", e.What)
}

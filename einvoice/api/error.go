package api

import "fmt"

const maxBodyInError = 512

// RequestError failed call to the tax service. Err is one of the einvoice
// sentinels (ErrAuthExpired, ErrUpstreamStatus, ErrUpstreamTransport).
type RequestError struct {
	StatusCode int
	Endpoint   string
	Err        error
	Body       string
	Message    string
}

func (r *RequestError) Error() string {
	if r.Message != "" {
		return fmt.Sprintf("%s: status: %d err: %v message: %s", r.Endpoint, r.StatusCode, r.Err, r.Message)
	}
	return fmt.Sprintf("%s: status: %d err: %v body: %s", r.Endpoint, r.StatusCode, r.Err, truncate(r.Body))
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

func truncate(s string) string {
	if len(s) <= maxBodyInError {
		return s
	}
	return s[:maxBodyInError] + "..."
}

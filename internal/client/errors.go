package client

import "fmt"

// ProcessingStartError indicates the job-start call returned a non-success
// HTTP status. Start failures surface immediately and are never retried;
// only stream transport errors retry.
type ProcessingStartError struct {
	StatusCode int
	Body       string
}

func (e *ProcessingStartError) Error() string {
	return fmt.Sprintf("processing start failed with status %d: %s", e.StatusCode, e.Body)
}

// MissingProcessingIDError indicates a successful start response carried no
// processing identifier in any known envelope shape.
type MissingProcessingIDError struct {
	Body string
}

func (e *MissingProcessingIDError) Error() string {
	return fmt.Sprintf("no processing id found in start response: %s", e.Body)
}

// StreamExhaustedError indicates the progress stream dropped at the
// transport level more times than the retry budget allows.
type StreamExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *StreamExhaustedError) Error() string {
	return fmt.Sprintf("progress stream failed after %d reconnect attempts: %v", e.Attempts, e.LastErr)
}

func (e *StreamExhaustedError) Unwrap() error {
	return e.LastErr
}

// StreamFailedError carries a server-reported extraction failure from an
// "error" stream event. Application-level failures are terminal.
type StreamFailedError struct {
	Message string
}

func (e *StreamFailedError) Error() string {
	return fmt.Sprintf("processing failed: %s", e.Message)
}

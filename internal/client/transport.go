package client

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Transport produces the request targets for the job-start call, the
// progress stream, and the abort call. The environment decision (direct
// worker vs. same-origin proxy) is made once at construction instead of
// being re-derived inside the protocol logic.
type Transport interface {
	// StartURL is the target for the job-start POST.
	StartURL() string

	// StreamURL is the event-stream target for one field's progress. The
	// bearer token rides as a query parameter because the stream cannot
	// carry custom headers.
	StreamURL(fieldID, processingID, token string) string

	// AbortURL is the target for the best-effort abort POST.
	AbortURL() string
}

// NewTransport classifies the backend base URL and returns the matching
// strategy: loopback hosts talk to the worker directly, anything else goes
// through the same-origin proxy route for CORS reasons.
func NewTransport(backendURL string) (Transport, error) {
	parsed, err := url.Parse(backendURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", backendURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", backendURL)
	}

	base := strings.TrimRight(backendURL, "/")
	if isLoopback(parsed.Hostname()) {
		return &directTransport{base: base}, nil
	}
	return &proxiedTransport{base: base}, nil
}

// isLoopback reports whether the host targets the local machine.
func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// directTransport talks straight to the worker service.
type directTransport struct {
	base string
}

func (t *directTransport) StartURL() string {
	return t.base + "/api/process"
}

func (t *directTransport) StreamURL(fieldID, processingID, token string) string {
	return streamURL(t.base+"/api/process/"+url.PathEscape(fieldID)+"/stream", processingID, token)
}

func (t *directTransport) AbortURL() string {
	return t.base + "/api/process/abort"
}

// proxiedTransport routes through the same-origin proxy API.
type proxiedTransport struct {
	base string
}

func (t *proxiedTransport) StartURL() string {
	return t.base + "/api/proxy/process"
}

func (t *proxiedTransport) StreamURL(fieldID, processingID, token string) string {
	return streamURL(t.base+"/api/proxy/process/"+url.PathEscape(fieldID)+"/stream", processingID, token)
}

func (t *proxiedTransport) AbortURL() string {
	return t.base + "/api/proxy/process/abort"
}

func streamURL(base, processingID, token string) string {
	query := url.Values{}
	if processingID != "" {
		query.Set("processing_id", processingID)
	}
	if token != "" {
		query.Set("token", token)
	}
	if encoded := query.Encode(); encoded != "" {
		return base + "?" + encoded
	}
	return base
}

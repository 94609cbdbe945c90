package ragclient

import "fmt"

type RemoteErrorKind string

const (
	// RemoteUnavailable covers transport failures: connection refused, DNS,
	// timeouts, cancelled requests.
	RemoteUnavailable RemoteErrorKind = "remote_unavailable"
	// RemoteRejected covers non-2xx responses and unreadable response
	// bodies.
	RemoteRejected RemoteErrorKind = "remote_rejected"
)

// RemoteError is the only error type callers see from this package; raw
// transport errors never escape unclassified.
type RemoteError struct {
	Kind       RemoteErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("rag service %s: %v", e.Kind, e.Err)
	case e.Body != "":
		return fmt.Sprintf("rag service %s: status %d: %s", e.Kind, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("rag service %s: status %d", e.Kind, e.StatusCode)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

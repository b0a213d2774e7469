package ambari

import (
	"errors"
	"fmt"
)

// ErrNoClusterFound is returned when the cluster listing is empty.
var ErrNoClusterFound = errors.New("no cluster found on the Ambari server")

// ClientError reports a transport or deserialization failure from an API
// call. A single failed call aborts the discovery run; nothing is retried.
type ClientError struct {
	Op  string
	URL string
	Err error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("ambari: %s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// RemoteServiceError reports a non-2xx response, carrying the status code
// and response body so the caller can surface what the server said.
type RemoteServiceError struct {
	StatusCode int
	Status     string
	Body       string
	URL        string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("ambari: request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

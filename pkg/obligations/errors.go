package obligations

import (
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-debts-client/pkg/httpclient"
)

var (
	ErrIDRequired     = errors.New("debt id is required")
	ErrSummaryMissing = errors.New("summary field missing from response")
)

// RemoteRequestError reports any failure below this package: network errors,
// timeouts, non-2xx statuses and undecodable bodies. Err is the original
// failure, unmodified.
type RemoteRequestError struct {
	Op         string
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *RemoteRequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("debts %s (%s %s) status %d: %v", e.Op, e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("debts %s (%s %s): %v", e.Op, e.Method, e.Path, e.Err)
}

func (e *RemoteRequestError) Unwrap() error { return e.Err }

// NotFound reports whether the remote service rejected the id as unknown.
func (e *RemoteRequestError) NotFound() bool { return e.StatusCode == 404 }

// IsRemote reports whether err is, or wraps, a RemoteRequestError.
func IsRemote(err error) bool {
	var remote *RemoteRequestError
	return errors.As(err, &remote)
}

func newRemoteError(op string, req httpclient.Request, resp httpclient.Response, err error) *RemoteRequestError {
	out := &RemoteRequestError{
		Op:     op,
		Method: req.Method,
		Path:   req.Path,
		Err:    err,
	}
	if resp != nil {
		out.StatusCode = resp.StatusCode()
		out.Body = resp.Body()
	}
	var statusErr *httpclient.StatusError
	if out.StatusCode == 0 && errors.As(err, &statusErr) {
		out.StatusCode = statusErr.StatusCode
		out.Body = statusErr.Body
	}
	return out
}

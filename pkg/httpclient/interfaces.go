package httpclient

import (
	"context"
	"net/url"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Request describes a single call against the remote API. Path is resolved
// against the client's base URL.
type Request struct {
	Method  string
	Path    string
	Params  url.Values
	Body    any
	Headers map[string]string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// A non-2xx outcome is reported as an error (see StatusError); the response is
// still returned alongside it when one was received.
type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
}

package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// Options configures the resty-backed transport.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	AuthToken string
	Headers   map[string]string
	// Transport replaces the default round tripper, e.g. with an instrumented one.
	Transport http.RoundTripper
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient from the given options.
func NewRestyClient(opts Options) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(opts)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(Options{Timeout: timeout})
}

func newRestyBaseClient(opts Options) *resty.Client {
	c := resty.New()
	if opts.Transport != nil {
		c.SetTransport(opts.Transport)
	}
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		c.SetBaseURL(base)
	}
	if len(opts.Headers) > 0 {
		c.SetHeaders(opts.Headers)
	}
	if opts.AuthToken != "" {
		c.SetAuthToken(opts.AuthToken)
	}
	c.SetHeader("Accept", "application/json")
	return c
}

// Do performs the request. Network failures return a nil response; non-2xx
// statuses return the response together with a *StatusError.
func (r *RestyClient) Do(ctx context.Context, req Request) (Response, error) {
	if req.Method == "" {
		return nil, fmt.Errorf("request method is empty")
	}

	rr := r.client.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, uuid.NewString())
	if len(req.Params) > 0 {
		rr.SetQueryParamsFromValues(req.Params)
	}
	if req.Body != nil {
		rr.SetHeader("Content-Type", "application/json")
		rr.SetBody(req.Body)
	}
	if len(req.Headers) > 0 {
		rr.SetHeaders(req.Headers)
	}

	resp, err := rr.Execute(req.Method, req.Path)
	if err != nil {
		return nil, err
	}

	adapted := &restyResponseAdapter{resp: resp}
	if !resp.IsSuccess() {
		return adapted, &StatusError{
			Method:     req.Method,
			URL:        resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
		}
	}
	return adapted, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }

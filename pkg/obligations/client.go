// Package obligations is the access layer for the remote debts resource.
// Each operation performs exactly one request against /debts and either
// returns the server's representation or a *RemoteRequestError.
package obligations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/samvad-hq/samvad-debts-client/pkg/httpclient"
)

const resourcePath = "/debts"

// Operation names used in errors, logs and metrics.
const (
	OpList    = "list"
	OpGet     = "get"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpRemove  = "remove"
	OpSummary = "summary"
)

// Options tunes client behaviour.
type Options struct {
	SummaryMode SummaryMode
	Observer    Observer
}

// Client exposes the debt operations. It holds no mutable state and is safe
// for concurrent use.
type Client struct {
	http        httpclient.Client
	log         Logger
	observer    Observer
	summaryMode SummaryMode
	now         func() time.Time
}

// NewClient wires a client over the given transport.
func NewClient(transport httpclient.Client, log Logger, opts Options) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("http client must not be nil")
	}
	if log == nil {
		log = noopLogger{}
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &Client{
		http:        transport,
		log:         log,
		observer:    observer,
		summaryMode: opts.SummaryMode,
		now:         time.Now,
	}, nil
}

// List returns the records matching filters in server-defined order.
func (c *Client) List(ctx context.Context, filters FilterSet) ([]Obligation, error) {
	req := httpclient.Request{Method: http.MethodGet, Path: resourcePath, Params: filters.Values()}

	var out []Obligation
	if err := c.call(ctx, OpList, req, decodeInto(&out)); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Obligation{}
	}
	return out, nil
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, id ID) (Obligation, error) {
	if id.IsZero() {
		return Obligation{}, ErrIDRequired
	}
	req := httpclient.Request{Method: http.MethodGet, Path: itemPath(id)}

	var out Obligation
	if err := c.call(ctx, OpGet, req, decodeInto(&out)); err != nil {
		return Obligation{}, err
	}
	return out, nil
}

// Create sends data as-is; the server assigns the id.
func (c *Client) Create(ctx context.Context, data Obligation) (Obligation, error) {
	req := httpclient.Request{Method: http.MethodPost, Path: resourcePath, Body: data}

	var out Obligation
	if err := c.call(ctx, OpCreate, req, decodeInto(&out)); err != nil {
		return Obligation{}, err
	}
	return out, nil
}

// Update sends a full or partial record for an existing id.
func (c *Client) Update(ctx context.Context, id ID, data Obligation) (Obligation, error) {
	if id.IsZero() {
		return Obligation{}, ErrIDRequired
	}
	req := httpclient.Request{Method: http.MethodPut, Path: itemPath(id), Body: data}

	var out Obligation
	if err := c.call(ctx, OpUpdate, req, decodeInto(&out)); err != nil {
		return Obligation{}, err
	}
	return out, nil
}

// Remove deletes a record and returns the server's acknowledgement body.
func (c *Client) Remove(ctx context.Context, id ID) (Acknowledgement, error) {
	if id.IsZero() {
		return nil, ErrIDRequired
	}
	req := httpclient.Request{Method: http.MethodDelete, Path: itemPath(id)}

	var ack Acknowledgement
	err := c.call(ctx, OpRemove, req, func(body []byte) error {
		if len(body) > 0 {
			ack = append(Acknowledgement(nil), body...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ack, nil
}

// GetSummary asks the list endpoint for the aggregate report only and returns
// the summary field of the response, never the record list.
func (c *Client) GetSummary(ctx context.Context) (SummaryReport, error) {
	params := url.Values{}
	params.Set(SummaryOnlyParam, "true")
	req := httpclient.Request{Method: http.MethodGet, Path: resourcePath, Params: params}

	var report SummaryReport
	err := c.call(ctx, OpSummary, req, func(body []byte) error {
		var env summaryEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("decode summary response: %w", err)
		}
		report = NewSummaryReport(env.Summary)
		if !report.Present() && c.summaryMode == SummaryStrict {
			return ErrSummaryMissing
		}
		return nil
	})
	if err != nil {
		return SummaryReport{}, err
	}
	if !report.Present() {
		return SummaryReport{}, nil
	}
	return report, nil
}

// call performs one round trip and hands the body to decode. Any failure,
// including a decode failure, goes through fail.
func (c *Client) call(ctx context.Context, op string, req httpclient.Request, decode func([]byte) error) error {
	start := c.now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return c.fail(op, req, resp, start, err)
	}
	if resp == nil {
		return c.fail(op, req, nil, start, errors.New("transport returned no response"))
	}
	if decode != nil {
		if err := decode(resp.Body()); err != nil {
			return c.fail(op, req, resp, start, err)
		}
	}

	c.observer.ObserveCall(Call{
		Op:         op,
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: resp.StatusCode(),
		Elapsed:    c.now().Sub(start),
	})
	c.log.DebugObj("debts request completed", "debts_call", map[string]any{
		"op":     op,
		"method": req.Method,
		"path":   req.Path,
		"status": resp.StatusCode(),
	})
	return nil
}

func decodeInto(out any) func([]byte) error {
	return func(body []byte) error {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

// fail records the failure with the logger and observer, then hands it back
// for propagation.
func (c *Client) fail(op string, req httpclient.Request, resp httpclient.Response, start time.Time, err error) error {
	remote := newRemoteError(op, req, resp, err)
	c.observer.ObserveCall(Call{
		Op:         op,
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: remote.StatusCode,
		Elapsed:    c.now().Sub(start),
		Err:        remote,
	})
	c.log.ErrorObj("debts request failed", "debts_error", map[string]any{
		"op":     op,
		"method": req.Method,
		"path":   req.Path,
		"status": remote.StatusCode,
		"body":   httpclient.Snippet(remote.Body),
		"error":  err.Error(),
	})
	return remote
}

func itemPath(id ID) string {
	return resourcePath + "/" + url.PathEscape(id.String())
}

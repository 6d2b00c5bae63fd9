package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-restkit/restkit/client/queue"
)

// SuccessFunc receives the decoded response body, or nil when the
// response carried none.
type SuccessFunc func(body any)

// FailureFunc receives the response, when one exists, and the error
// that failed the request.
type FailureFunc func(resp *http.Response, err error)

// Enqueue submits req to the client's work queue for asynchronous
// execution. It never blocks on the request itself and never invokes a
// callback on the caller's stack. Exactly one of onSuccess/onFailure
// runs, exactly once, when the work completes: onSuccess for a 2xx
// status whose body is absent or decodes as JSON, onFailure otherwise.
// A request cancelled via [Client.CancelMatching] before completion
// invokes neither. The returned error is non-nil only when the queue
// refuses the work (after [Client.Close]).
func (c *Client) Enqueue(req *http.Request, onSuccess SuccessFunc, onFailure FailureFunc) error {
	key := queue.Key{Method: req.Method, URL: req.URL.String()}

	_, err := c.queue.Start(req.Context(), key, func(ctx context.Context) error {
		return c.run(ctx, req, onSuccess, onFailure)
	})
	if err != nil {
		return fmt.Errorf("enqueueing %s %s: %w", req.Method, req.URL, err)
	}

	return nil
}

// Get builds a GET request with query-string parameters and enqueues it.
func (c *Client) Get(ctx context.Context, path string, params url.Values, onSuccess SuccessFunc, onFailure FailureFunc) error {
	return c.send(ctx, http.MethodGet, path, params, onSuccess, onFailure)
}

// Post builds a POST request with a url-encoded body and enqueues it.
func (c *Client) Post(ctx context.Context, path string, params url.Values, onSuccess SuccessFunc, onFailure FailureFunc) error {
	return c.send(ctx, http.MethodPost, path, params, onSuccess, onFailure)
}

// Put builds a PUT request with a url-encoded body and enqueues it.
func (c *Client) Put(ctx context.Context, path string, params url.Values, onSuccess SuccessFunc, onFailure FailureFunc) error {
	return c.send(ctx, http.MethodPut, path, params, onSuccess, onFailure)
}

// Delete builds a DELETE request with a url-encoded body and enqueues it.
func (c *Client) Delete(ctx context.Context, path string, params url.Values, onSuccess SuccessFunc, onFailure FailureFunc) error {
	return c.send(ctx, http.MethodDelete, path, params, onSuccess, onFailure)
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values, onSuccess SuccessFunc, onFailure FailureFunc) error {
	req, err := c.NewRequest(ctx, method, path, params)
	if err != nil {
		return err
	}

	return c.Enqueue(req, onSuccess, onFailure)
}

// CancelMatching requests best-effort cancellation of all in-flight
// work items whose originating request matches both method and rawurl
// exactly. Already-completed items are unaffected. It returns the
// number of items signalled.
func (c *Client) CancelMatching(method, rawurl string) int {
	n := c.queue.CancelMatching(queue.Key{Method: method, URL: rawurl})
	if n > 0 {
		c.logger.Info("cancelled matching requests", "method", method, "url", rawurl, "count", n)
	}

	return n
}

// Wait blocks until all enqueued requests complete, returning their
// errors joined.
func (c *Client) Wait() error {
	return c.queue.Wait()
}

// Close shuts the work queue down. Subsequent Enqueue calls are
// refused with an error wrapping [queue.ErrShutdown].
func (c *Client) Close() {
	c.queue.Shutdown()
}

// run executes one enqueued request on a queue goroutine and delivers
// its terminal callback. A context cancelled before delivery
// suppresses both callbacks.
func (c *Client) run(ctx context.Context, req *http.Request, onSuccess SuccessFunc, onFailure FailureFunc) error {
	ctx, span := c.tracer.Start(ctx, "client.request", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL.String()),
	))
	defer span.End()

	resp, err := c.c.Do(req.WithContext(ctx))
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Info("request cancelled", "method", req.Method, "url", req.URL.String())
			return ctx.Err()
		}

		err = fmt.Errorf("transport: %w", err)
		span.SetStatus(codes.Error, err.Error())
		c.deliverFailure(ctx, onFailure, nil, err)
		return err
	}
	defer c.closeBody(resp)

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := c.statusError(resp)
		span.SetStatus(codes.Error, err.Error())
		c.deliverFailure(ctx, onFailure, resp, err)
		return err
	}

	body, err := decodeBody(resp)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.deliverFailure(ctx, onFailure, resp, err)
		return err
	}

	if ctx.Err() != nil {
		c.logger.Info("request cancelled", "method", req.Method, "url", req.URL.String())
		return ctx.Err()
	}
	if onSuccess != nil {
		onSuccess(body)
	}

	return nil
}

// statusError builds the ResponseError for a non-2xx response, reading
// the body with a size cap.
func (c *Client) statusError(resp *http.Response) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
	if err != nil {
		b = []byte("unable to read body")
	}

	cause := error(ErrUnacceptableResponse)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		cause = fmt.Errorf("%w: %w", ErrAuthFailure, ErrUnacceptableResponse)
	}

	return &ResponseError{
		StatusCode: resp.StatusCode,
		Body:       string(b),
		Err:        cause,
	}
}

// deliverFailure invokes onFailure unless the operation was cancelled
// or no callback was registered.
func (c *Client) deliverFailure(ctx context.Context, onFailure FailureFunc, resp *http.Response, err error) {
	if ctx.Err() != nil || onFailure == nil {
		return
	}

	onFailure(resp, err)
}

// closeBody discards any unread body and closes it, logging failures.
func (c *Client) closeBody(resp *http.Response) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Error("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}

// decodeBody reads a 2xx response body and decodes it as JSON. Because
// the client requests gzip encoding explicitly, a gzipped body is
// decompressed here rather than by the transport. An empty body
// decodes to nil.
func decodeBody(resp *http.Response) (any, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		defer gz.Close()
		reader = gz
	}

	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return v, nil
}

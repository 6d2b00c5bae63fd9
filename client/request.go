package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-restkit/restkit/client/multipart"
)

// contentTypeForm is set on body-bearing requests built from a
// parameter map.
const contentTypeForm = "application/x-www-form-urlencoded"

// NewRequest instantiates an *http.Request for the given method and
// path, resolved against the client's base URL. An absolute path
// overrides the base entirely. For body-less methods (GET, HEAD) the
// parameters are merged into the URL's query string; for all other
// methods they become a URL-encoded request body. Default headers and
// the current Authorization value are copied onto the request.
func (c *Client) NewRequest(ctx context.Context, method, path string, params url.Values) (*http.Request, error) {
	u, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if bodyless(method) {
		if len(params) > 0 {
			q := u.Query()
			for name, values := range params {
				for _, value := range values {
					q.Add(name, value)
				}
			}
			u.RawQuery = q.Encode()
		}
	} else if params != nil {
		body = strings.NewReader(params.Encode())
	}

	req, err := newRequest(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	c.applyHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeForm)
	}

	return req, nil
}

// NewMultipartRequest instantiates an *http.Request whose body is
// multipart/form-data. The method must be body-bearing. Parameters, if
// any, are appended first as individual form-data parts in sorted key
// order; build then runs synchronously with the [multipart.Form]
// capability and may append further parts. The body is fully
// materialized before the request is created, and Content-Length is
// set from its byte length.
func (c *Client) NewMultipartRequest(ctx context.Context, method, path string, params url.Values, build func(*multipart.Form)) (*http.Request, error) {
	if bodyless(method) {
		return nil, fmt.Errorf("method %s %w: multipart requests require a body-bearing method", method, ErrInvalidArgument)
	}

	u, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	form := multipart.New()
	for _, name := range slices.Sorted(maps.Keys(params)) {
		for _, value := range params[name] {
			form.AppendFormField(name, []byte(value))
		}
	}

	if build != nil {
		build(form)
	}

	if err := form.Err(); err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}

	req, err := newRequest(ctx, method, u, bytes.NewReader(form.Bytes()))
	if err != nil {
		return nil, err
	}

	c.applyHeaders(req)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+form.Boundary())

	return req, nil
}

func newRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	return req, nil
}

// resolve interprets path relative to the base URL. A parse failure is
// an argument error; an absolute path replaces the base URL.
func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("path %q %w: %w", path, ErrInvalidArgument, err)
	}

	return c.baseURL.ResolveReference(ref), nil
}

// applyHeaders copies a consistent snapshot of the default headers
// onto req. Values already present on the request are not overridden.
func (c *Client) applyHeaders(req *http.Request) {
	for name, values := range c.snapshotHeaders() {
		if req.Header.Get(name) != "" {
			continue
		}
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
}

// bodyless reports whether parameters for the method belong in the
// query string rather than the request body.
func bodyless(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	}

	return false
}

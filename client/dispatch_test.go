package client_test

import (
	"compress/gzip"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-restkit/restkit/client"
	"github.com/go-restkit/restkit/client/queue"
)

// callbackRecorder counts terminal callback invocations and captures
// their arguments for assertion after Client.Wait.
type callbackRecorder struct {
	successes atomic.Int32
	failures  atomic.Int32

	body     any
	resp     *http.Response
	err      error
	respCode int
}

func (r *callbackRecorder) onSuccess(body any) {
	r.successes.Add(1)
	r.body = body
}

func (r *callbackRecorder) onFailure(resp *http.Response, err error) {
	r.failures.Add(1)
	r.resp = resp
	r.err = err
	if resp != nil {
		r.respCode = resp.StatusCode
	}
}

func (r *callbackRecorder) assertExactlyOne(t *testing.T, wantSuccess bool) {
	t.Helper()

	s, f := r.successes.Load(), r.failures.Load()
	if wantSuccess && (s != 1 || f != 0) {
		t.Fatalf("expected exactly one success callback, got successes=%d failures=%d (err=%v)", s, f, r.err)
	}
	if !wantSuccess && (s != 0 || f != 1) {
		t.Fatalf("expected exactly one failure callback, got successes=%d failures=%d", s, f)
	}
}

func TestEnqueue_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"body":"ok","n":3}`))
	}))
	defer ts.Close()

	c := mustNew(t, ts.URL)

	var rec callbackRecorder
	if err := c.Get(t.Context(), "/", nil, rec.onSuccess, rec.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}

	rec.assertExactlyOne(t, true)

	want := map[string]any{"body": "ok", "n": float64(3)}
	if diff := cmp.Diff(want, rec.body); diff != "" {
		t.Errorf("decoded body mismatch (-want +got):\n%s", diff)
	}
}

func TestEnqueue_EmptyBodySuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := mustNew(t, ts.URL)

	var rec callbackRecorder
	if err := c.Get(t.Context(), "/", nil, rec.onSuccess, rec.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	c.Wait()

	rec.assertExactlyOne(t, true)
	if rec.body != nil {
		t.Errorf("expected nil body for 204, got %v", rec.body)
	}
}

func TestEnqueue_GzipResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(`{"compressed":true}`))
		gz.Close()
	}))
	defer ts.Close()

	c := mustNew(t, ts.URL)

	var rec callbackRecorder
	if err := c.Get(t.Context(), "/", nil, rec.onSuccess, rec.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	c.Wait()

	rec.assertExactlyOne(t, true)
	want := map[string]any{"compressed": true}
	if diff := cmp.Diff(want, rec.body); diff != "" {
		t.Errorf("decoded body mismatch (-want +got):\n%s", diff)
	}
}

func TestEnqueue_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such user", http.StatusNotFound)
	}))
	defer ts.Close()

	c := mustNew(t, ts.URL)

	var rec callbackRecorder
	if err := c.Get(t.Context(), "users/42", nil, rec.onSuccess, rec.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	c.Wait()

	rec.assertExactlyOne(t, false)

	if !errors.Is(rec.err, client.ErrUnacceptableResponse) {
		t.Errorf("expected ErrUnacceptableResponse, got %v", rec.err)
	}

	var respErr *client.ResponseError
	if !errors.As(rec.err, &respErr) {
		t.Fatalf("expected *ResponseError, got %T", rec.err)
	}
	if respErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, respErr.StatusCode)
	}
	if rec.respCode != http.StatusNotFound {
		t.Errorf("expected response with status %d on the callback, got %d", http.StatusNotFound, rec.respCode)
	}
}

func TestEnqueue_AuthFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := mustNew(t, ts.URL)

	var rec callbackRecorder
	if err := c.Get(t.Context(), "/", nil, rec.onSuccess, rec.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	c.Wait()

	rec.assertExactlyOne(t, false)
	if !errors.Is(rec.err, client.ErrAuthFailure) {
		t.Errorf("expected ErrAuthFailure, got %v", rec.err)
	}
}

func TestEnqueue_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := ts.URL
	ts.Close() // nothing is listening anymore

	c := mustNew(t, baseURL)

	var rec callbackRecorder
	if err := c.Get(t.Context(), "/", nil, rec.onSuccess, rec.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	c.Wait()

	rec.assertExactlyOne(t, false)
	if rec.resp != nil {
		t.Error("expected no response on a transport failure")
	}
	if rec.err == nil {
		t.Error("expected a transport error")
	}
}

func TestEnqueue_DecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"truncated":`))
	}))
	defer ts.Close()

	c := mustNew(t, ts.URL)

	var rec callbackRecorder
	if err := c.Get(t.Context(), "/", nil, rec.onSuccess, rec.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	c.Wait()

	rec.assertExactlyOne(t, false)
	if !errors.Is(rec.err, client.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", rec.err)
	}
}

func TestConvenienceMethods_FormBody(t *testing.T) {
	testCases := []struct {
		method string
		call   func(c *client.Client, t *testing.T, rec *callbackRecorder) error
	}{
		{method: http.MethodPost, call: func(c *client.Client, t *testing.T, rec *callbackRecorder) error {
			return c.Post(t.Context(), "items", url.Values{"k": {"v"}}, rec.onSuccess, rec.onFailure)
		}},
		{method: http.MethodPut, call: func(c *client.Client, t *testing.T, rec *callbackRecorder) error {
			return c.Put(t.Context(), "items", url.Values{"k": {"v"}}, rec.onSuccess, rec.onFailure)
		}},
		{method: http.MethodDelete, call: func(c *client.Client, t *testing.T, rec *callbackRecorder) error {
			return c.Delete(t.Context(), "items", url.Values{"k": {"v"}}, rec.onSuccess, rec.onFailure)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.method, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tc.method {
					t.Errorf("expected method %s, got %s", tc.method, r.Method)
				}
				if err := r.ParseForm(); err != nil {
					t.Errorf("parsing form: %v", err)
				}
				if got := r.PostFormValue("k"); got != "v" {
					t.Errorf("expected form value %q, got %q", "v", got)
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer ts.Close()

			c := mustNew(t, ts.URL)

			var rec callbackRecorder
			if err := tc.call(c, t, &rec); err != nil {
				t.Fatalf("unexpected enqueue error: %v", err)
			}
			c.Wait()

			rec.assertExactlyOne(t, true)
		})
	}
}

func TestCancelMatching_SuppressesCallbacks(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))
	defer ts.Close()
	defer close(release)

	c := mustNew(t, ts.URL)

	req, err := c.NewRequest(t.Context(), http.MethodGet, "slow", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	var rec callbackRecorder
	if err := c.Enqueue(req, rec.onSuccess, rec.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	<-entered
	if n := c.CancelMatching(http.MethodGet, req.URL.String()); n != 1 {
		t.Fatalf("expected 1 cancelled request, got %d", n)
	}

	// The queue records the cancellation; neither terminal callback may fire.
	if err := c.Wait(); err == nil {
		t.Error("expected the cancellation to surface from Wait")
	}

	if s, f := rec.successes.Load(), rec.failures.Load(); s != 0 || f != 0 {
		t.Errorf("expected no callbacks after cancellation, got successes=%d failures=%d", s, f)
	}
}

func TestCancelMatching_NoMatch(t *testing.T) {
	c := mustNew(t, "https://api.example.com/")

	if n := c.CancelMatching(http.MethodGet, "https://api.example.com/none"); n != 0 {
		t.Errorf("expected 0 cancelled requests, got %d", n)
	}
}

func TestEnqueue_AfterClose(t *testing.T) {
	c := mustNew(t, "https://api.example.com/")
	c.Close()

	req, err := c.NewRequest(t.Context(), http.MethodGet, "users", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	var rec callbackRecorder
	err = c.Enqueue(req, rec.onSuccess, rec.onFailure)
	if !errors.Is(err, queue.ErrShutdown) {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
	if s, f := rec.successes.Load(), rec.failures.Load(); s != 0 || f != 0 {
		t.Errorf("expected no callbacks for refused work, got successes=%d failures=%d", s, f)
	}
}

func TestClient_FailureDoesNotInvalidateClient(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := mustNew(t, ts.URL)

	var rec1 callbackRecorder
	if err := c.Get(t.Context(), "/", nil, rec1.onSuccess, rec1.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	c.Wait()
	rec1.assertExactlyOne(t, false)

	fail.Store(false)

	var rec2 callbackRecorder
	if err := c.Get(t.Context(), "/", nil, rec2.onSuccess, rec2.onFailure); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	c.Wait()
	rec2.assertExactlyOne(t, true)
}

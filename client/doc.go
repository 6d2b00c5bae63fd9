// Package client provides a base-URL HTTP client that builds requests
// from shared configuration and executes them asynchronously through a
// work queue with success/failure callbacks.
//
// # Building a Client
//
// Use [New] with functional options:
//
//	c, err := client.New("https://api.example.com/v1/",
//		client.WithTimeout(10 * time.Second),
//		client.WithConcurrency(4),
//	)
//
// Every request built by the client carries its default headers:
// Accept, Accept-Encoding, a locale-derived Accept-Language, and a
// generated User-Agent, plus whatever [Client.SetDefaultHeader] and the
// auth setters add later. Header mutation affects only requests built
// after the call.
//
// # Authorization
//
//	c.SetBasicAuth("user", "secret") // Authorization: Basic <base64>
//	c.SetTokenAuth(accessToken)      // Authorization: Bearer <token>
//	c.ClearAuth()
//
// # Making Requests
//
// The convenience methods build and enqueue in one step. Exactly one
// of the two callbacks runs, exactly once, off the caller's stack:
//
//	err := c.Get(ctx, "users", url.Values{"page": {"2"}},
//		func(body any) { /* decoded JSON */ },
//		func(resp *http.Response, err error) { /* transport, status, or decode failure */ },
//	)
//
// Lower-level control is available through [Client.NewRequest],
// [Client.NewMultipartRequest], and [Client.Enqueue]. In-flight
// requests can be cancelled by exact method and URL:
//
//	c.CancelMatching(http.MethodGet, "https://api.example.com/v1/users?page=2")
//
// # Multipart Uploads
//
// [Client.NewMultipartRequest] passes a form capability to a
// construction callback; see
// [github.com/go-restkit/restkit/client/multipart].
package client

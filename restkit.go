// Package restkit exposes the client builder.
package restkit

import (
	"github.com/go-restkit/restkit/client"
)

// New instantiates a new *client.Client rooted at baseURL with the
// provided options. See the client package for the full API.
func New(baseURL string, opts ...client.Option) (*client.Client, error) {
	return client.New(baseURL, opts...)
}

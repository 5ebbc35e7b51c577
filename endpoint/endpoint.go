// Package endpoint holds the inference backends a dispatcher pool is built
// from.
package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZutrixPog/llmdispatch"
	"go.opentelemetry.io/otel/trace"
)

const (
	KindOpenAI   = "openai"
	KindGenerate = "generate"
)

var ErrUnknownKind = errors.New("unknown endpoint kind")

// New builds a single endpoint of the given kind.
func New(kind, url string, opts Options) (dispatcher.Endpoint, error) {
	if url == "" {
		return nil, ErrMissingURL
	}

	switch kind {
	case KindOpenAI, "":
		return NewOpenAI(url, opts)
	case KindGenerate:
		return NewGenerate(GenerateURL(url), nil, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// NewPool builds one traced endpoint per URL and puts them in a round robin
// pool, in the order given.
func NewPool(kind string, urls []string, opts Options, tracer trace.Tracer) (*dispatcher.EndpointPool, error) {
	eps := make([]dispatcher.Endpoint, 0, len(urls))
	for _, url := range urls {
		ep, err := New(kind, url, opts)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", url, err)
		}
		eps = append(eps, Traced(ep, tracer))
	}

	return dispatcher.NewEndpointPool(eps...)
}

// GenerateURL maps an OpenAI style base URL (http://host:port/v1) to the
// native generate route of the same server.
func GenerateURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/generate") {
		return base
	}
	return strings.TrimSuffix(base, "/v1") + "/generate"
}

package dispatcher

import (
	"context"
	"fmt"
	"sync"
)

// Endpoint is one backend inference instance. Execute sends an already built
// request and returns the raw model text. Implementations own their per-call
// timeout and must be safe for concurrent use.
type Endpoint interface {
	Name() string
	Execute(ctx context.Context, request []byte) (string, error)
}

// Selector hands out the endpoint for the next attempt.
type Selector interface {
	Next() Endpoint
}

// EndpointFunc adapts a plain function to Endpoint.
type EndpointFunc struct {
	ID string
	Fn func(ctx context.Context, request []byte) (string, error)
}

func (e EndpointFunc) Name() string {
	return e.ID
}

func (e EndpointFunc) Execute(ctx context.Context, request []byte) (string, error) {
	return e.Fn(ctx, request)
}

var (
	_ Endpoint = (*EndpointPool)(nil)
	_ Selector = (*EndpointPool)(nil)
)

// EndpointPool selects endpoints in strict round robin. The cursor is the only
// mutable state and is only touched under mu; no call is ever made while the
// lock is held.
type EndpointPool struct {
	endpoints []Endpoint
	cursor    int
	mu        sync.Mutex
}

func NewEndpointPool(endpoints ...Endpoint) (*EndpointPool, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	for i, ep := range endpoints {
		if ep == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNilEndpoint, i)
		}
	}

	eps := make([]Endpoint, len(endpoints))
	copy(eps, endpoints)

	return &EndpointPool{endpoints: eps}, nil
}

// Next returns the endpoint under the cursor and advances it by one.
func (p *EndpointPool) Next() Endpoint {
	p.mu.Lock()
	ep := p.endpoints[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.endpoints)
	p.mu.Unlock()

	return ep
}

func (p *EndpointPool) Len() int {
	return len(p.endpoints)
}

func (p *EndpointPool) Endpoints() []Endpoint {
	eps := make([]Endpoint, len(p.endpoints))
	copy(eps, p.endpoints)
	return eps
}

func (p *EndpointPool) Name() string {
	return "pool"
}

// Execute forwards the request to the next endpoint, so a pool can stand in
// anywhere a single endpoint is expected.
func (p *EndpointPool) Execute(ctx context.Context, request []byte) (string, error) {
	return p.Next().Execute(ctx, request)
}

package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ZutrixPog/llmdispatch"
	"github.com/valyala/fasthttp"
)

const DefaultMaxTokens = 2048

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type generateResponse struct {
	Text []string `json:"text"`
}

var _ dispatcher.Endpoint = (*Generate)(nil)

// Generate posts prompts to the native vLLM /generate route.
type Generate struct {
	url    string
	client *fasthttp.Client
	opts   Options
}

// NewGenerate uses client when given, otherwise a fresh fasthttp client.
func NewGenerate(url string, client *fasthttp.Client, opts Options) (*Generate, error) {
	if url == "" {
		return nil, ErrMissingURL
	}
	if client == nil {
		client = &fasthttp.Client{}
	}
	opts = opts.withDefaults()
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	return &Generate{url: url, client: client, opts: opts}, nil
}

func (g *Generate) Name() string {
	return g.url
}

func (g *Generate) Execute(ctx context.Context, request []byte) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:      string(request),
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(g.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetRequestURI(g.url)
	req.SetBody(body)

	if err := g.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("post %s: %w", g.url, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrUnexpectedRes, code, resp.Body())
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnexpectedRes, err)
	}
	if len(out.Text) == 0 {
		return "", ErrEmptyChoices
	}

	return out.Text[0], nil
}

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZutrixPog/llmdispatch"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = "vllm"
	DefaultAPIKey  = "EMPTY"
	DefaultTimeout = 60 * time.Second
)

var (
	ErrMissingURL    = errors.New("endpoint URL is required")
	ErrEmptyChoices  = errors.New("completion returned no choices")
	ErrUnexpectedRes = errors.New("unexpected response from endpoint")
)

// Options are the generation settings shared by every endpoint kind.
type Options struct {
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.APIKey == "" {
		o.APIKey = DefaultAPIKey
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

var _ dispatcher.Endpoint = (*OpenAI)(nil)

// OpenAI talks to one OpenAI compatible server, such as a vLLM instance
// started with its API server. The request bytes become the single user
// message.
type OpenAI struct {
	baseURL string
	client  *openai.Client
	opts    Options
}

func NewOpenAI(baseURL string, opts Options) (*OpenAI, error) {
	if baseURL == "" {
		return nil, ErrMissingURL
	}
	opts = opts.withDefaults()

	config := openai.DefaultConfig(opts.APIKey)
	config.BaseURL = baseURL

	return &OpenAI{
		baseURL: baseURL,
		client:  openai.NewClientWithConfig(config),
		opts:    opts,
	}, nil
}

func (o *OpenAI) Name() string {
	return o.baseURL
}

func (o *OpenAI) Execute(ctx context.Context, request []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: o.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: string(request)},
		},
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}

	return resp.Choices[0].Message.Content, nil
}

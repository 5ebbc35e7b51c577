// Package config loads the dispatch settings from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNoEndpointURLs = errors.New("no endpoint URLs configured")

// Config holds all settings of a dispatch run, grouped by concern.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	IO        IOConfig        `mapstructure:"io"`
	Queue     QueueConfig     `mapstructure:"queue"`
	History   HistoryConfig   `mapstructure:"history"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// EndpointsConfig describes the inference servers. URLs wins over Host and
// Ports when both are set.
type EndpointsConfig struct {
	Kind        string        `mapstructure:"kind" validate:"required,oneof=openai generate"`
	URLs        []string      `mapstructure:"urls"`
	Host        string        `mapstructure:"host"`
	Ports       []int         `mapstructure:"ports" validate:"dive,gt=0,lt=65536"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model" validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type DispatchConfig struct {
	// Concurrency 0 means one worker per endpoint.
	Concurrency  int           `mapstructure:"concurrency" validate:"gte=0"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"gt=0"`
	Backoff      time.Duration `mapstructure:"backoff" validate:"gte=0"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" validate:"gte=0"`
	Codec        string        `mapstructure:"codec" validate:"required,oneof=gob json"`
	Anchor       string        `mapstructure:"anchor"`
}

type IOConfig struct {
	InputJSONL string `mapstructure:"input_jsonl" validate:"required"`
	OutputDir  string `mapstructure:"output_dir" validate:"required"`
}

type QueueConfig struct {
	Backend   string `mapstructure:"backend" validate:"required,oneof=memory redis"`
	RedisAddr string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int    `mapstructure:"redis_db" validate:"gte=0"`
	Limit     int    `mapstructure:"limit" validate:"gte=0"`
}

// HistoryConfig enables outcome persistence when DSN is set.
type HistoryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// MetricsConfig serves /metrics on Addr when it is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// EndpointURLs resolves the endpoint base URLs. An explicit URL list is used
// as is (trimmed, blanks dropped); otherwise one URL is built per port on
// Host.
func (c *Config) EndpointURLs() ([]string, error) {
	var urls []string
	for _, u := range c.Endpoints.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) > 0 {
		return urls, nil
	}

	host := c.Endpoints.Host
	if host == "" {
		host = "localhost"
	}
	for _, port := range c.Endpoints.Ports {
		urls = append(urls, fmt.Sprintf("http://%s:%d/v1", host, port))
	}
	if len(urls) == 0 {
		return nil, ErrNoEndpointURLs
	}

	return urls, nil
}

// Concurrency is the configured limit, or the endpoint count when unset.
func (c *Config) Concurrency(endpoints int) int {
	if c.Dispatch.Concurrency > 0 {
		return c.Dispatch.Concurrency
	}
	if endpoints > 0 {
		return endpoints
	}
	return 1
}

package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "LLMDISPATCH"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("endpoints.kind", "openai")
	v.SetDefault("endpoints.host", "localhost")
	v.SetDefault("endpoints.ports", []int{8001, 8002, 8003, 8004})
	v.SetDefault("endpoints.api_key", "EMPTY")
	v.SetDefault("endpoints.model", "vllm")
	v.SetDefault("endpoints.temperature", 0.0)
	v.SetDefault("endpoints.max_tokens", 0)
	v.SetDefault("endpoints.timeout", "60s")

	v.SetDefault("dispatch.concurrency", 0)
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.backoff", "1s")
	v.SetDefault("dispatch.batch_timeout", 0)
	v.SetDefault("dispatch.codec", "gob")
	v.SetDefault("dispatch.anchor", "输入：")

	v.SetDefault("io.input_jsonl", "data/tasks.jsonl")
	v.SetDefault("io.output_dir", "outputs")

	v.SetDefault("queue.backend", "memory")
	v.SetDefault("queue.redis_addr", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.limit", 0)

	// Unmarshal only sees keys viper knows about, so optional sections get
	// zero defaults to make their environment variables visible.
	v.SetDefault("history.dsn", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.enabled", false)
}

// Load reads configuration from the YAML file at path, when path is not
// empty, and from the environment.
// Environment variables take precedence over the file. Every key can be set
// as LLMDISPATCH_<SECTION>_<KEY>; the variables used by existing vLLM
// deployments (VLLM_URLS, VLLM_PORTS, MODEL, ...) are bound as well.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs := []struct {
		key     string
		envVars []string
	}{
		{"endpoints.urls", []string{"LLMDISPATCH_ENDPOINTS_URLS", "VLLM_URLS"}},
		{"endpoints.ports", []string{"LLMDISPATCH_ENDPOINTS_PORTS", "VLLM_PORTS"}},
		{"endpoints.host", []string{"LLMDISPATCH_ENDPOINTS_HOST", "VLLM_HOST"}},
		{"endpoints.api_key", []string{"LLMDISPATCH_ENDPOINTS_API_KEY", "VLLM_API_KEY"}},
		{"endpoints.model", []string{"LLMDISPATCH_ENDPOINTS_MODEL", "MODEL"}},
		{"io.input_jsonl", []string{"LLMDISPATCH_IO_INPUT_JSONL", "INPUT_JSONL"}},
		{"io.output_dir", []string{"LLMDISPATCH_IO_OUTPUT_DIR", "OUTPUT_DIR"}},
	}
	for _, env := range bindEnvs {
		input := append([]string{env.key}, env.envVars...)
		if err := v.BindEnv(input...); err != nil {
			return nil, fmt.Errorf("bind environment for %s: %w", env.key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

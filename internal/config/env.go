package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variable names read by ApplyEnv.
const (
	EnvMaxPages        = "MAX_PAGES"
	EnvMaxDepth        = "MAX_DEPTH"
	EnvDelay           = "DELAY_BETWEEN_REQUESTS"
	EnvTimeout         = "TIMEOUT"
	EnvUserAgent       = "USER_AGENT"
	EnvOutputDir       = "OUTPUT_DIR"
	EnvParallelWorkers = "PARALLEL_WORKERS"
	EnvAIProvider      = "AI_PROVIDER"
	EnvAIModel         = "AI_MODEL"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvOpenAIBaseURL   = "OPENAI_BASE_URL"
)

// ApplyEnv overrides c with environment variables.
// lookup is usually os.LookupEnv. Empty values are ignored.
// DELAY_BETWEEN_REQUESTS and TIMEOUT accept seconds ("1.5") or a Go
// duration ("1500ms").
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvMaxPages); ok {
		n, err := parseInt(EnvMaxPages, v)
		if err != nil {
			return err
		}
		c.MaxPages = n
	}
	if v, ok := get(EnvMaxDepth); ok {
		n, err := parseInt(EnvMaxDepth, v)
		if err != nil {
			return err
		}
		c.MaxDepth = n
	}
	if v, ok := get(EnvDelay); ok {
		d, err := parseSeconds(EnvDelay, v)
		if err != nil {
			return err
		}
		c.Delay = d
	}
	if v, ok := get(EnvTimeout); ok {
		d, err := parseSeconds(EnvTimeout, v)
		if err != nil {
			return err
		}
		c.Timeout = d
	}
	if v, ok := get(EnvUserAgent); ok {
		c.UserAgent = v
	}
	if v, ok := get(EnvOutputDir); ok {
		c.OutputDir = v
	}
	if v, ok := get(EnvParallelWorkers); ok {
		n, err := parseInt(EnvParallelWorkers, v)
		if err != nil {
			return err
		}
		c.BatchSize = n
	}
	if v, ok := get(EnvAIProvider); ok {
		c.AIProvider = strings.ToLower(v)
	}
	if v, ok := get(EnvAIModel); ok {
		c.AIModel = v
	}
	if v, ok := get(EnvOpenAIAPIKey); ok {
		c.OpenAIAPIKey = v
	}
	if v, ok := get(EnvOpenAIBaseURL); ok {
		c.AIBaseURL = v
	}
	return nil
}

func parseInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidEnv, name, value)
	}
	return n, nil
}

func parseSeconds(name, value string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("%w: %s=%q is not a number of seconds or a duration", ErrInvalidEnv, name, value)
}

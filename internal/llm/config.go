package llm

import (
	"os"
	"strconv"
)

// TaskType identifies the kind of assistant task being performed.
type TaskType string

const (
	TaskGenerateItems TaskType = "generate_items"
	TaskAnalyze       TaskType = "analyze"
)

// TaskConfig holds per-task model parameters.
type TaskConfig struct {
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	TimeoutMs   int     `toml:"timeout_ms"` // overrides global if > 0
}

// LLMConfig holds all configuration for the assistant's model backend.
type LLMConfig struct {
	Enabled    bool   `toml:"enabled"`
	LogCalls   bool   `toml:"log_calls"`
	Endpoint   string `toml:"endpoint"`
	Model      string `toml:"model"`
	TimeoutMs  int    `toml:"timeout_ms"`
	MaxRetries int    `toml:"max_retries"`
	// MaxItems caps how many generated items are kept from one answer.
	MaxItems int                     `toml:"max_items"`
	Tasks    map[TaskType]TaskConfig `toml:"tasks"`
}

// DefaultConfig returns an LLMConfig with sensible defaults.
// The assistant is disabled by default.
func DefaultConfig() LLMConfig {
	return LLMConfig{
		Enabled:    false,
		LogCalls:   false,
		Endpoint:   "http://localhost:11434",
		Model:      "llama3.2",
		TimeoutMs:  30000,
		MaxRetries: 1,
		MaxItems:   15,
		Tasks: map[TaskType]TaskConfig{
			TaskGenerateItems: {Temperature: 0.3, MaxTokens: 2048, TimeoutMs: 45000},
			TaskAnalyze:       {Temperature: 0.2, MaxTokens: 1024, TimeoutMs: 20000},
		},
	}
}

// LoadConfig reads configuration from environment variables over defaults.
func LoadConfig() LLMConfig {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv overrides cfg with any ESTIBOT_LLM_* variables that are set and
// valid. Invalid values are ignored.
func ApplyEnv(cfg LLMConfig) LLMConfig {
	if cfg.Tasks == nil {
		cfg.Tasks = DefaultConfig().Tasks
	}

	if v := os.Getenv("ESTIBOT_LLM_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v := os.Getenv("ESTIBOT_LLM_LOG_CALLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogCalls = b
		}
	}
	if v := os.Getenv("ESTIBOT_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("ESTIBOT_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if n, ok := positiveIntEnv("ESTIBOT_LLM_TIMEOUT_MS"); ok {
		cfg.TimeoutMs = n
	}
	if v := os.Getenv("ESTIBOT_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if n, ok := positiveIntEnv("ESTIBOT_LLM_MAX_ITEMS"); ok {
		cfg.MaxItems = n
	}

	applyTaskTimeoutEnv(&cfg, TaskGenerateItems, "ESTIBOT_LLM_GENERATE_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskAnalyze, "ESTIBOT_LLM_ANALYZE_TIMEOUT_MS")

	return cfg
}

// TaskTimeout returns the effective timeout for a given task type.
// Uses the task-specific timeout if set, otherwise the global timeout.
func (c LLMConfig) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}

func positiveIntEnv(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func applyTaskTimeoutEnv(cfg *LLMConfig, task TaskType, envName string) {
	n, ok := positiveIntEnv(envName)
	if !ok {
		return
	}
	tc := cfg.Tasks[task]
	tc.TimeoutMs = n
	cfg.Tasks[task] = tc
}

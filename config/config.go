// Package config loads stackrun's configuration from a YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = ".stackrun/config.yaml"

// Config is the complete stackrun configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Engine    EngineConfig    `yaml:"engine"`
	Approval  string          `yaml:"approval"` // prompt, auto, deny
	Memory    MemoryConfig    `yaml:"memory"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Shell     ShellConfig     `yaml:"shell"`
}

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
	MaxRetries  int     `yaml:"max_retries"`

	// APIKeys maps provider name to key. Keys only come from the
	// environment and are never written back to disk.
	APIKeys map[string]string `yaml:"-"`
}

// EngineConfig bounds how far a single request can expand.
type EngineConfig struct {
	MaxDepth    int    `yaml:"max_depth"`
	MaxRevisits int    `yaml:"max_revisits"`
	MaxSteps    int    `yaml:"max_steps"`
	LoopWindow  int    `yaml:"loop_window"`
	ToolTimeout string `yaml:"tool_timeout"` // empty means no limit
}

// MemoryConfig controls context memory. An empty Path keeps memory in
// process only.
type MemoryConfig struct {
	Path             string `yaml:"path"`
	MaxFragmentChars int    `yaml:"max_fragment_chars"`
}

// WorkspaceConfig controls which files capabilities see.
type WorkspaceConfig struct {
	Root                string   `yaml:"root"`
	IgnorePatterns      []string `yaml:"ignore_patterns"`
	SupportedExtensions []string `yaml:"supported_extensions"`
	MaxFileBytes        int64    `yaml:"max_file_bytes"`
}

// ShellConfig controls shell command execution.
type ShellConfig struct {
	Timeout string `yaml:"timeout"`
}

// ValidProviders lists the supported LLM providers.
var ValidProviders = []string{"anthropic", "openai", "gemini"}

// ValidApprovalModes lists the accepted values of Config.Approval.
var ValidApprovalModes = []string{"prompt", "auto", "deny"}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "",
			Temperature: 0.2,
			MaxTokens:   4096,
			Timeout:     "120s",
			MaxRetries:  2,
			APIKeys:     map[string]string{},
		},
		Engine: EngineConfig{
			MaxDepth:    4,
			MaxRevisits: 2,
			MaxSteps:    200,
			LoopWindow:  6,
		},
		Approval: "prompt",
		Memory: MemoryConfig{
			Path:             ".stackrun/memory.db",
			MaxFragmentChars: 2000,
		},
		Workspace: WorkspaceConfig{
			MaxFileBytes: 1 << 20,
		},
		Shell: ShellConfig{
			Timeout: "2m",
		},
	}
}

// LoadDotEnv loads variables from a .env file without overriding ones that
// are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if cfg.LLM.APIKeys == nil {
		cfg.LLM.APIKeys = map[string]string{}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKeys["anthropic"] = key
	} else if key := os.Getenv("CLAUDE_API_KEY"); key != "" {
		c.LLM.APIKeys["anthropic"] = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKeys["openai"] = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKeys["gemini"] = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKeys["gemini"] = key
	}

	if p := os.Getenv("DEFAULT_AI_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	if m := os.Getenv("DEFAULT_MODEL"); m != "" {
		c.LLM.Model = m
	}
	if s := os.Getenv("DEFAULT_TIMEOUT_SECONDS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			c.LLM.Timeout = strconv.Itoa(n) + "s"
		}
	}
	if a := os.Getenv("STACKRUN_APPROVAL"); a != "" {
		c.Approval = a
	}

	// Without an explicit provider, use the first one that has a key.
	if c.LLM.Provider == "" {
		for _, p := range ValidProviders {
			if c.LLM.APIKeys[p] != "" {
				c.LLM.Provider = p
				break
			}
		}
	}
}

// APIKey returns the key for the selected provider.
func (c *Config) APIKey() (string, error) {
	if c.LLM.Provider == "" {
		return "", errors.New("no LLM provider configured (set ANTHROPIC_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY)")
	}
	key := c.LLM.APIKeys[c.LLM.Provider]
	if key == "" {
		return "", fmt.Errorf("no API key for provider %s", c.LLM.Provider)
	}
	return key, nil
}

// LLMTimeout returns the per-request LLM timeout.
func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// ToolTimeout returns the per-dispatch timeout, or zero for none.
func (c *Config) ToolTimeout() time.Duration {
	return parseDuration(c.Engine.ToolTimeout, 0)
}

// ShellTimeout returns the shell command timeout.
func (c *Config) ShellTimeout() time.Duration {
	return parseDuration(c.Shell.Timeout, 2*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Validate reports the first invalid setting. It does not require an API
// key; commands that call a model check APIKey themselves.
func (c *Config) Validate() error {
	if c.LLM.Provider != "" && !contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if !contains(ValidApprovalModes, c.Approval) {
		return fmt.Errorf("invalid approval mode: %s (valid: %v)", c.Approval, ValidApprovalModes)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries)
	}
	if c.Engine.MaxDepth <= 0 {
		return fmt.Errorf("engine.max_depth must be positive, got %d", c.Engine.MaxDepth)
	}
	if c.Engine.MaxRevisits < 0 {
		return fmt.Errorf("engine.max_revisits must not be negative, got %d", c.Engine.MaxRevisits)
	}
	if c.Engine.MaxSteps < 0 {
		return fmt.Errorf("engine.max_steps must not be negative, got %d", c.Engine.MaxSteps)
	}
	if c.Memory.MaxFragmentChars <= 0 {
		return fmt.Errorf("memory.max_fragment_chars must be positive, got %d", c.Memory.MaxFragmentChars)
	}
	if c.Workspace.MaxFileBytes <= 0 {
		return fmt.Errorf("workspace.max_file_bytes must be positive, got %d", c.Workspace.MaxFileBytes)
	}
	for name, value := range map[string]string{
		"llm.timeout":         c.LLM.Timeout,
		"engine.tool_timeout": c.Engine.ToolTimeout,
		"shell.timeout":       c.Shell.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

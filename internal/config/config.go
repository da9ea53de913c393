// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"workbench/internal/agent"
	"workbench/internal/llm"
	"workbench/internal/tools"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore: WORKBENCH_TOOLS__TIMEOUT_SECONDS sets tools.timeout_seconds.
const EnvPrefix = "WORKBENCH_"

// GeminiAPIURL is the OpenAI-compatible Gemini endpoint used when only
// GEMINI_API_KEY is set.
const GeminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

const geminiModel = "gemini-2.0-flash"

// Config represents the application configuration.
type Config struct {
	WorkingDir    string      `koanf:"working_dir"`
	MaxIterations int         `koanf:"max_iterations"`
	Model         string      `koanf:"model"`
	APIURL        string      `koanf:"api_url"`
	APIKey        string      `koanf:"api_key"`
	Temperature   *float32    `koanf:"temperature"`
	MaxTokens     *int        `koanf:"max_tokens"`
	Verbose       bool        `koanf:"verbose"`
	Metrics       bool        `koanf:"metrics"`
	HistoryFile   string      `koanf:"history_file"`
	Log           LogConfig   `koanf:"log"`
	Tools         ToolsConfig `koanf:"tools"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

// ToolsConfig configures the capabilities.
type ToolsConfig struct {
	MaxReadChars        int               `koanf:"max_read_chars"`
	Interpreter         string            `koanf:"interpreter"`
	ScriptExtension     string            `koanf:"script_extension"`
	TimeoutSeconds      int               `koanf:"timeout_seconds"`
	MaxFileSizeBytes    int64             `koanf:"max_file_size_bytes"`
	MaxDirectoryEntries int               `koanf:"max_directory_entries"`
	Output              OutputConfig      `koanf:"output"`
	Deny                []string          `koanf:"deny"`
	Confirm             []string          `koanf:"confirm"`
	RatePerMinute       int               `koanf:"rate_per_minute"`
	RateLimits          map[string]int    `koanf:"rate_limits"`
	CooldownSeconds     map[string]int    `koanf:"cooldown_seconds"`
	Env                 map[string]string `koanf:"env"`
}

// OutputConfig configures script output sanitization.
type OutputConfig struct {
	MaxChars     int  `koanf:"max_chars"`
	StripANSI    bool `koanf:"strip_ansi"`
	StripControl bool `koanf:"strip_control"`
}

func setDefaults(k *koanf.Koanf) {
	limits := tools.DefaultLimits()
	script := tools.DefaultScriptOptions()
	filters := tools.DefaultOutputFilterConfig()

	defaults := map[string]interface{}{
		"working_dir":                 ".",
		"max_iterations":              agent.DefaultMaxIterations,
		"model":                       llm.DefaultModel,
		"api_url":                     llm.DefaultAPIURL,
		"history_file":                ".workbench_history",
		"log.level":                   "info",
		"tools.max_read_chars":        limits.MaxReadChars,
		"tools.interpreter":           script.Interpreter,
		"tools.script_extension":      script.Extension,
		"tools.timeout_seconds":       int(script.Timeout / time.Second),
		"tools.max_file_size_bytes":   limits.MaxFileSizeBytes,
		"tools.max_directory_entries": limits.MaxDirectoryEntries,
		"tools.output.max_chars":      filters.MaxChars,
		"tools.output.strip_ansi":     filters.StripANSI,
		"tools.output.strip_control":  filters.StripControl,
	}
	for key, value := range defaults {
		_ = k.Set(key, value)
	}
}

// Load builds the configuration from defaults, an optional YAML file at path
// and WORKBENCH_ environment overrides, in that order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	if path != "" {
		fileLayer := koanf.New(".")
		if err := fileLayer.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		if err := checkKeys(fileLayer.Keys()); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
		if err := k.Merge(fileLayer); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyProviderEnv()
	return &cfg, nil
}

// envKey maps WORKBENCH_TOOLS__DENY=a,b to tools.deny=[a b].
func envKey(key, value string) (string, interface{}) {
	name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	name = strings.ReplaceAll(name, "__", ".")
	if listKeys[name] {
		return name, splitList(value)
	}
	return name, value
}

var listKeys = map[string]bool{
	"tools.deny":    true,
	"tools.confirm": true,
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// applyProviderEnv falls back to provider-specific keys when no api_key is configured.
func (c *Config) applyProviderEnv() {
	if c.APIKey != "" {
		return
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.APIKey = val
		return
	}
	if val := os.Getenv("GEMINI_API_KEY"); val != "" {
		c.APIKey = val
		if c.APIURL == llm.DefaultAPIURL {
			c.APIURL = GeminiAPIURL
		}
		if c.Model == llm.DefaultModel {
			c.Model = geminiModel
		}
	}
}

// ToolOptions converts the configuration into registry options. Approver and
// Recorder are left for the caller.
func (c *Config) ToolOptions() tools.Options {
	opts := tools.DefaultOptions()
	opts.Limits = tools.Limits{
		MaxFileSizeBytes:    c.Tools.MaxFileSizeBytes,
		MaxDirectoryEntries: c.Tools.MaxDirectoryEntries,
		MaxReadChars:        c.Tools.MaxReadChars,
	}
	opts.OutputFilters = tools.OutputFilterConfig{
		MaxChars:     c.Tools.Output.MaxChars,
		StripANSI:    c.Tools.Output.StripANSI,
		StripControl: c.Tools.Output.StripControl,
	}
	opts.Policy = tools.PolicyFromLists(c.Tools.Deny, c.Tools.Confirm)
	opts.Timeouts = c.timeouts()
	opts.RateLimits = c.rateLimits()
	opts.Script = tools.ScriptOptions{
		Interpreter: c.Tools.Interpreter,
		Extension:   c.Tools.ScriptExtension,
		Timeout:     opts.Timeouts.TimeoutFor(tools.RunPythonFile),
		Env:         c.scriptEnv(),
	}
	return opts
}

func (c *Config) timeouts() tools.TimeoutConfig {
	cfg := tools.DefaultTimeoutConfig()
	if c.Tools.TimeoutSeconds > 0 {
		cfg.PerCapability[tools.RunPythonFile] = time.Duration(c.Tools.TimeoutSeconds) * time.Second
	}
	return cfg
}

func (c *Config) rateLimits() tools.RateLimitConfig {
	perCapability := make(map[string]int, len(c.Tools.RateLimits))
	for name, rate := range c.Tools.RateLimits {
		perCapability[name] = rate
	}
	cooldowns := make(map[string]time.Duration, len(c.Tools.CooldownSeconds))
	for name, seconds := range c.Tools.CooldownSeconds {
		if seconds <= 0 {
			continue
		}
		cooldowns[name] = time.Duration(seconds) * time.Second
	}
	return tools.RateLimitConfig{
		DefaultPerMinute: c.Tools.RatePerMinute,
		PerCapability:    perCapability,
		Cooldowns:        cooldowns,
	}
}

func (c *Config) scriptEnv() []string {
	if len(c.Tools.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(c.Tools.Env))
	for key, value := range c.Tools.Env {
		env = append(env, strings.ToUpper(key)+"="+value)
	}
	return env
}

// LoopOptions returns the dispatch loop settings. The logger and observer are
// left for the caller.
func (c *Config) LoopOptions() agent.Options {
	return agent.Options{MaxIterations: c.MaxIterations}
}

// ChatOptions returns the chat backend settings.
func (c *Config) ChatOptions() llm.Options {
	return llm.Options{
		Model:       c.Model,
		APIURL:      c.APIURL,
		APIKey:      c.APIKey,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}

// ValidationWarning represents a non-fatal configuration issue
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings.
// Capability names in policy lists are checked against registry when given.
func (c *Config) Validate(registry *tools.Registry) []ValidationWarning {
	var warnings []ValidationWarning

	if c.Temperature != nil {
		temp := *c.Temperature
		if temp < 0 || temp > 2 {
			warnings = append(warnings, ValidationWarning{
				Field:   "temperature",
				Message: fmt.Sprintf("temperature %.2f is outside recommended range [0, 2]", temp),
			})
		}
	}

	if c.MaxTokens != nil && *c.MaxTokens <= 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "max_tokens",
			Message: fmt.Sprintf("max_tokens %d must be positive", *c.MaxTokens),
		})
	}

	if c.MaxIterations <= 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "max_iterations",
			Message: fmt.Sprintf("max_iterations %d should be positive, using %d", c.MaxIterations, agent.DefaultMaxIterations),
		})
	}

	if c.Tools.TimeoutSeconds <= 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "tools.timeout_seconds",
			Message: fmt.Sprintf("timeout_seconds %d should be positive, using %s", c.Tools.TimeoutSeconds, tools.DefaultScriptTimeout),
		})
	}

	if ext := c.Tools.ScriptExtension; ext != "" && !strings.HasPrefix(ext, ".") {
		warnings = append(warnings, ValidationWarning{
			Field:   "tools.script_extension",
			Message: fmt.Sprintf("script_extension %q should start with a dot", ext),
		})
	}

	if registry != nil {
		registered := make(map[string]bool)
		for _, name := range registry.Names() {
			registered[name] = true
		}
		check := func(field string, names []string) {
			for _, name := range names {
				if !registered[name] {
					warnings = append(warnings, ValidationWarning{
						Field:   field,
						Message: fmt.Sprintf("capability %q in %s is not registered", name, field),
					})
				}
			}
		}
		check("tools.deny", c.Tools.Deny)
		check("tools.confirm", c.Tools.Confirm)
	}

	return warnings
}

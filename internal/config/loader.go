package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"whisper", "groq"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout %v must not be negative", cfg.Server.RequestTimeout))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation, warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.LLM.Fallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	for _, fb := range cfg.Providers.STT.Fallbacks {
		validateProviderName("stt", fb.Name)
	}

	// Fallbacks without a primary make no sense.
	if cfg.Providers.LLM.Name == "" && len(cfg.Providers.LLM.Fallbacks) > 0 {
		errs = append(errs, errors.New("providers.llm.fallbacks set but providers.llm.name is empty"))
	}
	if cfg.Providers.STT.Name == "" && len(cfg.Providers.STT.Fallbacks) > 0 {
		errs = append(errs, errors.New("providers.stt.fallbacks set but providers.stt.name is empty"))
	}

	// Provider-specific requirements that would otherwise only surface at
	// first use.
	if cfg.Providers.STT.Name == "whisper" && cfg.Providers.STT.BaseURL == "" {
		errs = append(errs, errors.New("providers.stt.base_url is required for the whisper provider (whisper-server address)"))
	}

	// Availability warnings. Both stages degrade gracefully, so these are
	// not errors.
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; only typed answers will be accepted")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; date, email and phone answers will not be normalized")
	}

	// Normalizer
	if cfg.Normalizer.Temperature < 0 || cfg.Normalizer.Temperature > 2 {
		errs = append(errs, fmt.Errorf("normalizer.temperature %.2f is out of range [0, 2]", cfg.Normalizer.Temperature))
	}
	if cfg.Normalizer.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("normalizer.max_tokens %d must not be negative", cfg.Normalizer.MaxTokens))
	}

	// Catalog override files must exist when set.
	for _, file := range []struct {
		key  string
		path string
	}{
		{"catalog.prompts_file", cfg.Catalog.PromptsFile},
		{"catalog.messages_file", cfg.Catalog.MessagesFile},
		{"catalog.issues_file", cfg.Catalog.IssuesFile},
	} {
		if file.path == "" {
			continue
		}
		if _, err := os.Stat(file.path); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", file.key, file.path, err))
		}
	}

	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; submissions will be kept in memory only")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides. Nested keys use a double
// underscore, e.g. TAPI_CHAT__ON_FAILURE=propagate.
const EnvPrefix = "TAPI_"

// DefaultConfigPath is the config file read when none is given.
const DefaultConfigPath = "config.yaml"

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Vendor      VendorConfig      `koanf:"vendor"`
	Secrets     SecretsConfig     `koanf:"secrets"`
	Chat        ChatConfig        `koanf:"chat"`
	Storage     StorageConfig     `koanf:"storage"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Log         LogConfig         `koanf:"log"`
}

type ServerConfig struct {
	Port           int            `koanf:"port"`
	RequestTimeout time.Duration  `koanf:"request_timeout"`
	APIKeys        []APIKeyConfig `koanf:"api_keys"` // Optional: empty disables the gate
}

type APIKeyConfig struct {
	KeyHash     string `koanf:"key_hash"`
	Description string `koanf:"description"`
}

// CredentialsConfig controls where the service-account key is persisted.
type CredentialsConfig struct {
	KeyPath string `koanf:"key_path"`
}

// VendorConfig bounds every outbound call to Google Cloud and the chat provider.
type VendorConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// SecretsConfig names the vault entries the chat step reads.
type SecretsConfig struct {
	// Version is the version selector used for every lookup: "latest" or a
	// fixed number such as "1".
	Version    string `koanf:"version"`
	ModelName  string `koanf:"model_name"`
	APIKeyName string `koanf:"api_key_name"`
	PromptName string `koanf:"prompt_name"`
}

type ChatConfig struct {
	Provider       string  `koanf:"provider"`   // openai, openai-compatible, anthropic, gemini
	Mode           string  `koanf:"mode"`       // translate, normalize
	OnFailure      string  `koanf:"on_failure"` // keep_original, propagate
	TopP           float64 `koanf:"top_p"`
	MaxTokens      int     `koanf:"max_tokens"`       // 0 = provider default
	MaxInputTokens int     `koanf:"max_input_tokens"` // 0 = unlimited
	BaseURL        string  `koanf:"base_url"`         // Optional: custom API endpoint
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadFile reads the given YAML file (a missing file is not an error) and
// applies environment overrides and defaults.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults() {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Chat.BaseURL = substituteEnvVars(cfg.Chat.BaseURL)
	cfg.Credentials.KeyPath = expandHome(substituteEnvVars(cfg.Credentials.KeyPath))
	cfg.Storage.SQLite.Path = substituteEnvVars(cfg.Storage.SQLite.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":            8080,
		"server.request_timeout": "60s",
		"credentials.key_path":   "~/key.json",
		"vendor.timeout":         "30s",
		"secrets.version":        "latest",
		"secrets.model_name":     "CHATGPT_MODEL",
		"secrets.api_key_name":   "CHATGPT_API_KEY",
		"secrets.prompt_name":    "CHATGPT_PROMPT_FOR_TRANSLATION",
		"chat.provider":          "openai",
		"chat.mode":              "translate",
		"chat.on_failure":        "keep_original",
		"chat.top_p":             0.2,
		"storage.type":           "memory",
		"storage.sqlite.path":    "./data/refinements.db",
		"telemetry.service_name": "translationapis",
		"log.level":              "info",
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Chat.Mode {
	case "translate", "normalize":
	default:
		return fmt.Errorf("invalid chat.mode %q (want translate or normalize)", c.Chat.Mode)
	}
	switch c.Chat.OnFailure {
	case "keep_original", "propagate":
	default:
		return fmt.Errorf("invalid chat.on_failure %q (want keep_original or propagate)", c.Chat.OnFailure)
	}
	switch c.Storage.Type {
	case "memory", "sqlite", "none":
	default:
		return fmt.Errorf("invalid storage.type %q (want memory, sqlite or none)", c.Storage.Type)
	}
	if c.Secrets.Version == "" {
		return fmt.Errorf("secrets.version must not be empty")
	}
	if c.Vendor.Timeout <= 0 {
		return fmt.Errorf("vendor.timeout must be positive")
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// expandHome resolves a leading "~" against the running user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

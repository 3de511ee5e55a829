// Package config loads runtime configuration from the environment, with an
// optional .env file exported first. All engine settings are carried by a
// single Config value passed down by injection; nothing in this package holds
// mutable global state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Config carries the runtime settings of the engine. Defaults mirror a
// conservative production setup: low temperature for deterministic
// classification and data extraction, a higher one for synthesis.
type Config struct {
	AppName string `envconfig:"APP_NAME" default:"Bank Customer Service"`

	// Model selection. Provider is one of "openai", "anthropic" or "mock";
	// ModelName is passed through to the provider adapter.
	Provider  string `envconfig:"MODEL_PROVIDER" default:"openai"`
	ModelName string `envconfig:"MODEL_NAME" default:"gpt-4o-mini"`

	Temperature            float64 `envconfig:"TEMPERATURE" default:"0.2"`
	SynthesizerTemperature float64 `envconfig:"SYNTHESIZER_TEMPERATURE" default:"0.7"`

	// InvocationTimeout bounds a single agent invocation. Zero disables the
	// bound entirely.
	InvocationTimeout time.Duration `envconfig:"INVOCATION_TIMEOUT" default:"2m"`
	MaxModelCalls     int           `envconfig:"MAX_MODEL_CALLS" default:"10"`

	// PromptsPath points at a prompts YAML file overriding the embedded
	// defaults. Empty means use the embedded configuration.
	PromptsPath string `envconfig:"PROMPTS_PATH"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	// PostgresDSN selects the bun-backed banking store when set; the
	// in-memory fixture store is used otherwise.
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// envPrefix namespaces all engine variables (BANKDESK_MODEL_NAME, ...).
const envPrefix = "BANKDESK"

// Load reads Config from the environment. When envFile is non-empty it must
// exist; otherwise a ./.env file is exported when present.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := exportEnvironment(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load default env file: %w", err)
	}

	var conf Config
	if err := envconfig.Process(envPrefix, &conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

// MustLoad is Load that panics on error, for wiring code where a bad
// environment is unrecoverable anyway.
func MustLoad(envFile string) *Config {
	conf, err := Load(envFile)
	if err != nil {
		panic(err)
	}
	return conf
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}

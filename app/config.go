package app

import (
	"fmt"
	"os"
	"time"

	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/fetch"
	"github.com/delaneyj/livedoc/store"
	"github.com/delaneyj/livedoc/tmpl"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Prefix marks directive attributes, "l-" by default.
	Prefix string `yaml:"prefix"`

	Debounce    time.Duration `yaml:"debounce"`
	SettleDelay time.Duration `yaml:"settleDelay"`

	BaseURL        string        `yaml:"baseURL"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	StartPage string `yaml:"startPage"`
	Locale    string `yaml:"locale"`
	Version   string `yaml:"version"`

	ExprCacheSize      int `yaml:"exprCacheSize"`
	ComponentCacheSize int `yaml:"componentCacheSize"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

const DefaultComponentCacheSize = 64

func DefaultConfig() Config {
	return Config{
		Prefix:             tmpl.DefaultPrefix,
		Debounce:           store.DefaultDebounce,
		SettleDelay:        completion.DefaultSettleDelay,
		RequestTimeout:     fetch.DefaultTimeout,
		StartPage:          "home",
		Locale:             "en",
		Version:            "dev",
		ExprCacheSize:      expr.DefaultCacheSize,
		ComponentCacheSize: DefaultComponentCacheSize,
		LogLevel:           string(InfoLevel),
		LogFormat:          string(FormatConsole),
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file
// keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

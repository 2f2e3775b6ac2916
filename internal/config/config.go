// Package config resolves pipeline settings from defaults, a YAML file,
// BOOKS_* environment variables and command-line flags, in rising priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Name of the config file searched for in the working directory and
// $HOME/.books-pipeline.
const (
	FileName  = "books-pipeline"
	EnvPrefix = "BOOKS"
)

// Config is the fully resolved configuration.
type Config struct {
	Paths        PathsConfig        `mapstructure:"paths" yaml:"paths"`
	Matching     MatchingConfig     `mapstructure:"matching" yaml:"matching"`
	Survivorship SurvivorshipConfig `mapstructure:"survivorship" yaml:"survivorship"`
	Quality      QualityConfig      `mapstructure:"quality" yaml:"quality"`
	Acquire      AcquireConfig      `mapstructure:"acquire" yaml:"acquire"`
	Output       OutputConfig       `mapstructure:"output" yaml:"output"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
}

type PathsConfig struct {
	Landing  string `mapstructure:"landing" yaml:"landing" validate:"required"`
	Standard string `mapstructure:"standard" yaml:"standard" validate:"required"`
	Docs     string `mapstructure:"docs" yaml:"docs" validate:"required"`
	Runs     string `mapstructure:"runs" yaml:"runs"`
}

type MatchingConfig struct {
	ReuseB bool `mapstructure:"reuse_b" yaml:"reuse_b"`
}

type SurvivorshipConfig struct {
	Policy       string `mapstructure:"policy" yaml:"policy" validate:"oneof=pairwise group-union"`
	DeriveISBN13 bool   `mapstructure:"derive_isbn13" yaml:"derive_isbn13"`
}

type QualityConfig struct {
	CompletenessThreshold float64 `mapstructure:"completeness_threshold" yaml:"completeness_threshold" validate:"gte=0,lte=100"`
	MinTitleCompleteness  float64 `mapstructure:"min_title_completeness" yaml:"min_title_completeness" validate:"gte=0,lte=100"`
}

type AcquireConfig struct {
	Query          string        `mapstructure:"query" yaml:"query" validate:"required"`
	MaxBooks       int           `mapstructure:"max_books" yaml:"max_books" validate:"gte=1,lte=500"`
	GoodreadsURL   string        `mapstructure:"goodreads_url" yaml:"goodreads_url" validate:"required,url"`
	GoogleBooksURL string        `mapstructure:"googlebooks_url" yaml:"googlebooks_url" validate:"omitempty,url"`
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent" validate:"required"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key"`
	ScrapeDelay    time.Duration `mapstructure:"scrape_delay" yaml:"scrape_delay" validate:"gte=0"`
	EnrichDelay    time.Duration `mapstructure:"enrich_delay" yaml:"enrich_delay" validate:"gte=0"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl" validate:"gte=0"`
	RespectRobots  bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
}

type OutputConfig struct {
	SQLite    bool `mapstructure:"sqlite" yaml:"sqlite"`
	SchemaDoc bool `mapstructure:"schema_doc" yaml:"schema_doc"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=auto text json"`
}

// Defaults holds every setting's default, keyed by its dotted viper path.
// Durations are strings so the YAML written by `config init` stays readable.
var Defaults = map[string]any{
	"paths.landing":                  "landing",
	"paths.standard":                 "standard",
	"paths.docs":                     "docs",
	"paths.runs":                     "runs",
	"matching.reuse_b":               false,
	"survivorship.policy":            "pairwise",
	"survivorship.derive_isbn13":     false,
	"quality.completeness_threshold": 90.0,
	"quality.min_title_completeness": 90.0,
	"acquire.query":                  "data science",
	"acquire.max_books":              15,
	"acquire.goodreads_url":          "https://www.goodreads.com",
	"acquire.googlebooks_url":        "",
	"acquire.user_agent":             "Mozilla/5.0 (compatible; books-pipeline/0.1; +https://github.com/uxentio/books-pipeline)",
	"acquire.api_key":                "",
	"acquire.scrape_delay":           "1s",
	"acquire.enrich_delay":           "500ms",
	"acquire.timeout":                "30s",
	"acquire.cache_ttl":              "1h",
	"acquire.respect_robots":         true,
	"output.sqlite":                  false,
	"output.schema_doc":              true,
	"log.level":                      "info",
	"log.format":                     "auto",
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("acquire.api_key", EnvPrefix+"_ACQUIRE_API_KEY", "GOOGLE_BOOKS_API_KEY")
	return v
}

// ReadFile points v at cfgFile, or searches the default locations when it is
// empty. A missing file is only an error when it was named explicitly.
func ReadFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".books-pipeline"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName(FileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Settings returns the effective settings as a nested map, with secrets masked.
func Settings(v *viper.Viper) map[string]any {
	all := v.AllSettings()
	if acq, ok := all["acquire"].(map[string]any); ok {
		if key, _ := acq["api_key"].(string); key != "" {
			acq["api_key"] = "********"
		}
	}
	return all
}

// DefaultYAML renders Defaults as a nested YAML document.
func DefaultYAML() ([]byte, error) {
	keys := make([]string, 0, len(Defaults))
	for k := range Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nested := map[string]map[string]any{}
	for _, k := range keys {
		section, name, _ := strings.Cut(k, ".")
		if nested[section] == nil {
			nested[section] = map[string]any{}
		}
		nested[section][name] = Defaults[k]
	}

	data, err := yaml.Marshal(nested)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default config: %w", err)
	}
	return data, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAPIURL       = "http://localhost:8000"
	defaultResultLimit  = 3
	defaultLogFile      = "docchat.log"
	defaultLogLevel     = "info"
	defaultListCacheTTL = 30 * time.Second
)

// Environment variables read by Load. Values from the environment win over the YAML file.
const (
	EnvConfigPath   = "DOCCHAT_CONFIG"
	EnvAPIURL       = "DOCCHAT_API_URL"
	EnvResultLimit  = "DOCCHAT_RESULTS"
	EnvQueryTimeout = "DOCCHAT_TIMEOUT"
	EnvLogFile      = "DOCCHAT_LOG_FILE"
	EnvLogLevel     = "DOCCHAT_LOG_LEVEL"
	EnvListCacheTTL = "DOCCHAT_LIST_CACHE_TTL"
)

// Config holds every runtime option of the docchat client.
type Config struct {
	APIURL       string        `yaml:"api_url" validate:"required,url"`
	ResultLimit  int           `yaml:"n_results" validate:"min=1,max=50"`
	QueryTimeout time.Duration `yaml:"query_timeout" validate:"min=0"`
	LogFile      string        `yaml:"log_file"`
	LogLevel     string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	ListCacheTTL time.Duration `yaml:"list_cache_ttl" validate:"min=0"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		APIURL:       defaultAPIURL,
		ResultLimit:  defaultResultLimit,
		LogFile:      defaultLogFile,
		LogLevel:     defaultLogLevel,
		ListCacheTTL: defaultListCacheTTL,
	}
}

// Load layers defaults, a .env file, an optional YAML file and the environment.
// An empty path falls back to DOCCHAT_CONFIG; a missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvResultLimit)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvResultLimit, err)
		}
		c.ResultLimit = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvQueryTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvQueryTimeout, err)
		}
		c.QueryTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		c.LogFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvListCacheTTL)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvListCacheTTL, err)
		}
		c.ListCacheTTL = d
	}
	return nil
}

var validate = validator.New()

// Validate reports the first invalid field in a readable form.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

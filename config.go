package usecasekit

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds store and repository configuration
type Config struct {
	// Table
	TableName          string `yaml:"tableName"`
	UseCaseIDIndexName string `yaml:"useCaseIdIndexName"`

	// AWS client
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // e.g. DynamoDB Local; empty uses the default resolver

	// Recently used history cap per user
	RecentlyUsedLimit int `yaml:"recentlyUsedLimit"`

	// Page sizes
	UseCasePageSize     int32 `yaml:"useCasePageSize"`
	AssociationPageSize int32 `yaml:"associationPageSize"`

	// Parallel index lookups per batched resolve
	LookupConcurrency int `yaml:"lookupConcurrency"`

	LogLevel string `yaml:"logLevel"`
}

// DefaultConfig provides sensible defaults
var DefaultConfig = Config{
	TableName:           "UseCaseBuilderTable",
	UseCaseIDIndexName:  "UseCaseIdIndexName",
	Region:              "us-east-1",
	RecentlyUsedLimit:   100,
	UseCasePageSize:     30,
	AssociationPageSize: 20,
	LookupConcurrency:   10,
	LogLevel:            "info",
}

// Environment variables that override file and default values
const (
	EnvTableName         = "USECASE_TABLE_NAME"
	EnvIndexName         = "USECASE_ID_INDEX_NAME"
	EnvRegion            = "AWS_REGION"
	EnvEndpoint          = "DYNAMODB_ENDPOINT"
	EnvRecentlyUsedLimit = "RECENTLY_USED_SAVE_LIMIT"
	EnvLogLevel          = "LOG_LEVEL"
)

// LoadConfig builds a Config from defaults, an optional YAML file and the environment,
// in that order of precedence (environment wins). An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvTableName); v != "" {
		c.TableName = v
	}
	if v := os.Getenv(EnvIndexName); v != "" {
		c.UseCaseIDIndexName = v
	}
	if v := os.Getenv(EnvRegion); v != "" {
		c.Region = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvRecentlyUsedLimit); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRecentlyUsedLimit, err)
		}
		c.RecentlyUsedLimit = limit
	}
	return nil
}

// Validate checks the configuration for values the store cannot work with
func (c Config) Validate() error {
	var errs []error
	if c.TableName == "" {
		errs = append(errs, errors.New("table name is required"))
	}
	if c.UseCaseIDIndexName == "" {
		errs = append(errs, errors.New("use case id index name is required"))
	}
	if c.RecentlyUsedLimit <= 0 {
		errs = append(errs, errors.New("recently used limit must be positive"))
	}
	if c.UseCasePageSize <= 0 || c.AssociationPageSize <= 0 {
		errs = append(errs, errors.New("page sizes must be positive"))
	}
	if c.LookupConcurrency <= 0 {
		errs = append(errs, errors.New("lookup concurrency must be positive"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// WithDefaults returns a copy with every unset or non-positive field taken
// from DefaultConfig
func (c Config) WithDefaults() Config {
	d := DefaultConfig
	if c.TableName == "" {
		c.TableName = d.TableName
	}
	if c.UseCaseIDIndexName == "" {
		c.UseCaseIDIndexName = d.UseCaseIDIndexName
	}
	if c.RecentlyUsedLimit <= 0 {
		c.RecentlyUsedLimit = d.RecentlyUsedLimit
	}
	if c.UseCasePageSize <= 0 {
		c.UseCasePageSize = d.UseCasePageSize
	}
	if c.AssociationPageSize <= 0 {
		c.AssociationPageSize = d.AssociationPageSize
	}
	if c.LookupConcurrency <= 0 {
		c.LookupConcurrency = d.LookupConcurrency
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}

// Level returns the parsed zerolog level, falling back to Info
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}

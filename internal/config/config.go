// Package config loads seqweight settings.
//
// Sources are applied in order, later ones winning: built-in defaults, an
// optional YAML file, SEQWEIGHT_* environment variables, and finally the
// command-line flags the user actually set.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imicrobe/seqweight/internal/groupio"
	"github.com/imicrobe/seqweight/internal/logging"
	"github.com/imicrobe/seqweight/pkg/types"
)

// Environment variables
const (
	EnvConfig         = "SEQWEIGHT_CONFIG"
	EnvDBPath         = "SEQWEIGHT_DB_PATH"
	EnvWorkers        = "SEQWEIGHT_WORKERS"
	EnvLogLevel       = "SEQWEIGHT_LOG_LEVEL"
	EnvObjectEndpoint = "SEQWEIGHT_OBJECT_STORE_ENDPOINT"
)

// DefaultDBPath is used when no database path is configured
const DefaultDBPath = "seqweight.db"

// Sources of pack weights
const (
	WeightsIndex = "index" // indexed statistics, selected by metric
	WeightsSize  = "size"  // file size in bytes, no index needed
)

// Config holds every setting of the tool
type Config struct {
	Inputs          []string      `yaml:"inputs"`
	DBPath          string        `yaml:"db_path"`
	Workers         int           `yaml:"workers"`
	FileLimit       int           `yaml:"file_limit"`
	Groups          int           `yaml:"groups"`
	Prefix          string        `yaml:"prefix"`
	Metric          string        `yaml:"metric"`
	ValidFiles      string        `yaml:"valid_files"`
	InvalidFiles    string        `yaml:"invalid_files"`
	ReadBytesPerSec int64         `yaml:"read_bytes_per_sec"`
	WatchDebounce   time.Duration `yaml:"watch_debounce"`
	WatchSettle     time.Duration `yaml:"watch_settle"`
	Weights         string        `yaml:"weights"`
	Log             Log           `yaml:"log"`
	ObjectStore     ObjectStore   `yaml:"object_store"`
}

// Log configures the process logger
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ObjectStore configures s3:// group output. Keys are read from the
// environment, never from the file.
type ObjectStore struct {
	Endpoint string `yaml:"endpoint"`
	Secure   bool   `yaml:"secure"`
	Region   string `yaml:"region"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		DBPath:        DefaultDBPath,
		Workers:       runtime.NumCPU(),
		Metric:        string(types.DefaultMetric),
		WatchDebounce: 2 * time.Second,
		WatchSettle:   10 * time.Second,
		Weights:       WeightsIndex,
		Log: Log{
			Level:  "info",
			Format: logging.FormatText,
		},
		ObjectStore: ObjectStore{Secure: true},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if any)
// and the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("unable to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables looked up with
// lookup. An empty value counts as unset.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvObjectEndpoint); ok && v != "" {
		c.ObjectStore.Endpoint = v
	}
	return nil
}

// Validate checks the settings shared by every command
func (c *Config) Validate() error {
	var errs []error

	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.FileLimit < 0 {
		errs = append(errs, fmt.Errorf("file_limit must not be negative, got %d", c.FileLimit))
	}
	if c.ReadBytesPerSec < 0 {
		errs = append(errs, fmt.Errorf("read_bytes_per_sec must not be negative, got %d", c.ReadBytesPerSec))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce))
	}
	if c.WatchSettle < 0 {
		errs = append(errs, fmt.Errorf("watch_settle must not be negative, got %s", c.WatchSettle))
	}
	switch c.Weights {
	case "", WeightsIndex, WeightsSize:
	default:
		errs = append(errs, fmt.Errorf("invalid weights %q (want %s or %s)", c.Weights, WeightsIndex, WeightsSize))
	}
	if _, err := types.ParseMetric(c.Metric); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ValidatePack checks the settings needed to write groups
func (c *Config) ValidatePack() error {
	if c.Groups < 2 {
		return &types.PreconditionError{Op: fmt.Sprintf("pack into %d groups", c.Groups), Err: types.ErrInvalidGroupCount}
	}
	if c.Groups > groupio.MaxGroups {
		return &types.PreconditionError{Op: fmt.Sprintf("pack into %d groups", c.Groups), Err: types.ErrTooManyGroups}
	}
	if c.Prefix == "" {
		return errors.New("prefix is required")
	}
	return nil
}

// ObjectStoreOptions converts the object store settings for groupio
func (c *Config) ObjectStoreOptions() groupio.ObjectStoreOptions {
	return groupio.ObjectStoreOptions{
		Endpoint: c.ObjectStore.Endpoint,
		Secure:   c.ObjectStore.Secure,
		Region:   c.ObjectStore.Region,
	}
}

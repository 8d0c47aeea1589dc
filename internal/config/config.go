package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents the application configuration
type Config struct {
	Strava  StravaConfig  `toml:"strava"`
	Athlete AthleteConfig `toml:"athlete"`
	Review  ReviewConfig  `toml:"review"`
	Logging LoggingConfig `toml:"logging"`
}

// StravaConfig holds Strava API credentials and the sports counted as rides
type StravaConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Sports       []string `toml:"sports"`
}

// AthleteConfig holds the rider's thresholds
type AthleteConfig struct {
	FTP   float64 `toml:"ftp"`
	MaxHR float64 `toml:"max_hr"`
}

// ReviewConfig controls batch processing
type ReviewConfig struct {
	Workers      int    `toml:"workers"`
	RequirePower bool   `toml:"require_power"`
	OutputDir    string `toml:"output_dir"`
}

// LoggingConfig controls the logger
type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	JSON      bool   `toml:"json"`
	SentryDSN string `toml:"sentry_dsn"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// ErrInvalid is returned by Validate
var ErrInvalid = errors.New("invalid config")

// Environment overrides
const (
	EnvClientID     = "STRAVA_CLIENT_ID"
	EnvClientSecret = "STRAVA_CLIENT_SECRET"
	EnvFTP          = "RIDE_REVIEW_FTP"
	EnvMaxHR        = "RIDE_REVIEW_MAX_HR"
	EnvLogLevel     = "RIDE_REVIEW_LOG_LEVEL"
	EnvSentryDSN    = "SENTRY_DSN"
)

const (
	placeholderID     = "YOUR_CLIENT_ID"
	placeholderSecret = "YOUR_CLIENT_SECRET"
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Strava: StravaConfig{
			Sports: []string{"Ride", "VirtualRide", "GravelRide", "MountainBikeRide", "EBikeRide"},
		},
		Athlete: AthleteConfig{
			FTP:   250,
			MaxHR: 185,
		},
		Review: ReviewConfig{
			Workers:      4,
			RequirePower: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration at path (the default location when empty),
// layering it over the defaults. A .env file in the working directory is
// loaded first, and environment variables win over the file.
// A missing file is not an error when path is empty: defaults plus environment
// are used.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist) && explicit:
			return nil, fmt.Errorf("%s: %w", path, ErrNoConfig)
		case errors.Is(err, os.ErrNotExist):
			logrus.WithField("path", path).Debug("No config file, using defaults")
		default:
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Strava.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Strava.ClientSecret = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvSentryDSN); v != "" {
		c.Logging.SentryDSN = v
	}

	for env, dst := range map[string]*float64{EnvFTP: &c.Athlete.FTP, EnvMaxHR: &c.Athlete.MaxHR} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", env, v, ErrInvalid)
		}
		*dst = f
	}
	return nil
}

// Save writes the configuration as TOML
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// credentials live here
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// CreateExample writes an example config file unless one exists.
// It reports whether a file was written.
func CreateExample(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	example := DefaultConfig()
	example.Strava.ClientID = placeholderID
	example.Strava.ClientSecret = placeholderSecret
	if err := Save(path, &example); err != nil {
		return false, err
	}
	return true, nil
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.Athlete.FTP <= 0 {
		return fmt.Errorf("athlete.ftp must be positive, got %v: %w", c.Athlete.FTP, ErrInvalid)
	}
	if c.Athlete.MaxHR <= 0 {
		return fmt.Errorf("athlete.max_hr must be positive, got %v: %w", c.Athlete.MaxHR, ErrInvalid)
	}
	if c.Review.Workers <= 0 {
		return fmt.Errorf("review.workers must be positive, got %d: %w", c.Review.Workers, ErrInvalid)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w: %w", ErrInvalid, err)
	}
	return nil
}

// ValidateStrava checks the API credentials
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == placeholderID {
		return fmt.Errorf("strava.client_id is required - get it from https://www.strava.com/settings/api: %w", ErrInvalid)
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == placeholderSecret {
		return fmt.Errorf("strava.client_secret is required - get it from https://www.strava.com/settings/api: %w", ErrInvalid)
	}
	return nil
}

// Dir returns the path to the config directory
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ride-review"), nil
}

// DefaultPath returns ~/.ride-review/config.toml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

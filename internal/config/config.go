package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	KeyRailwayAPIToken      = "RAILWAY_API_TOKEN"
	KeyRailwayProjectID     = "RAILWAY_PROJECT_ID"
	KeyRailwayEnvironmentID = "RAILWAY_ENVIRONMENT_ID"
	KeyRailwayWorkspaceID   = "RAILWAY_WORKSPACE_ID"
	KeyRailwayAPIURL        = "RAILWAY_API_URL"
	KeyAuthSecret           = "AUTH_SECRET"
	KeyAuthURL              = "AUTH_URL"
	KeyGoogleClientID       = "GOOGLE_CLIENT_ID"
	KeyGoogleClientSecret   = "GOOGLE_CLIENT_SECRET"
	KeyDatabaseURL          = "DATABASE_URL"
	KeyListenAddr           = "LISTEN_ADDR"
	KeyGamesFile            = "GAMES_FILE"
	KeyLogLevel             = "LOG_LEVEL"
)

const (
	DefaultProjectID     = "a5801439-cd88-43eb-8d86-3dc38f7dca75"
	DefaultEnvironmentID = "ae07c071-34e1-4836-9121-c49f9916306e"
	DefaultAPIURL        = "https://backboard.railway.com/graphql/v2"
	DefaultDatabaseURL   = "file:./auth.db"
	DefaultListenAddr    = ":3000"
	DefaultAuthURL       = "http://localhost:3000"
)

type Config struct {
	RailwayAPIToken      string
	RailwayProjectID     string
	RailwayEnvironmentID string
	RailwayWorkspaceID   string
	RailwayAPIURL        string

	AuthSecret         string
	AuthURL            string
	GoogleClientID     string
	GoogleClientSecret string
	DatabaseURL        string

	ListenAddr string
	GamesFile  string
	LogLevel   string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRailwayProjectID, DefaultProjectID)
	v.SetDefault(KeyRailwayEnvironmentID, DefaultEnvironmentID)
	v.SetDefault(KeyRailwayAPIURL, DefaultAPIURL)
	v.SetDefault(KeyDatabaseURL, DefaultDatabaseURL)
	v.SetDefault(KeyListenAddr, DefaultListenAddr)
	v.SetDefault(KeyAuthURL, DefaultAuthURL)
	v.SetDefault(KeyLogLevel, "info")
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are skipped and variables already set are left alone.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from v. Values come from the config file,
// then the environment, then defaults.
func Load(v *viper.Viper) *Config {
	SetDefaults(v)
	get := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}
	return &Config{
		RailwayAPIToken:      get(KeyRailwayAPIToken),
		RailwayProjectID:     get(KeyRailwayProjectID),
		RailwayEnvironmentID: get(KeyRailwayEnvironmentID),
		RailwayWorkspaceID:   get(KeyRailwayWorkspaceID),
		RailwayAPIURL:        get(KeyRailwayAPIURL),
		AuthSecret:           get(KeyAuthSecret),
		AuthURL:              get(KeyAuthURL),
		GoogleClientID:       get(KeyGoogleClientID),
		GoogleClientSecret:   get(KeyGoogleClientSecret),
		DatabaseURL:          get(KeyDatabaseURL),
		ListenAddr:           get(KeyListenAddr),
		GamesFile:            get(KeyGamesFile),
		LogLevel:             get(KeyLogLevel),
	}
}

// Validate checks the settings needed to reach Railway.
func (c *Config) Validate() error {
	var errs []error
	if c.RailwayAPIToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyRailwayAPIToken))
	}
	if c.RailwayProjectID == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyRailwayProjectID))
	}
	if c.RailwayEnvironmentID == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyRailwayEnvironmentID))
	}
	return errors.Join(errs...)
}

// ValidateServer checks the additional settings the web server needs.
func (c *Config) ValidateServer() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.AuthSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyAuthSecret))
	}
	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", KeyGoogleClientID, KeyGoogleClientSecret))
	}
	return errors.Join(errs...)
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SecureCookies reports whether the site is served over HTTPS.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(c.AuthURL), "https://")
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()
	level := c.LogLevel
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}

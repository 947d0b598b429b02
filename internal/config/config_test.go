package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/charlesvien/game-nite/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load(viper.New())

	if cfg.RailwayProjectID != config.DefaultProjectID {
		t.Errorf("RailwayProjectID = %q", cfg.RailwayProjectID)
	}
	if cfg.RailwayEnvironmentID != config.DefaultEnvironmentID {
		t.Errorf("RailwayEnvironmentID = %q", cfg.RailwayEnvironmentID)
	}
	if cfg.DatabaseURL != "file:./auth.db" || cfg.ListenAddr != ":3000" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.GoogleEnabled() {
		t.Error("google sign-in should be off without credentials")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("RAILWAY_API_TOKEN", " secret-token ")
	t.Setenv("RAILWAY_PROJECT_ID", "proj-1")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "shh")

	v := viper.New()
	v.AutomaticEnv()
	cfg := config.Load(v)

	if cfg.RailwayAPIToken != "secret-token" {
		t.Errorf("RailwayAPIToken = %q", cfg.RailwayAPIToken)
	}
	if cfg.RailwayProjectID != "proj-1" {
		t.Errorf("RailwayProjectID = %q", cfg.RailwayProjectID)
	}
	if !cfg.GoogleEnabled() {
		t.Error("expected google sign-in to be enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamenite.yaml")
	content := "railway_api_token: from-file\nlisten_addr: \":8080\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error: %v", err)
	}
	cfg := config.Load(v)

	if cfg.RailwayAPIToken != "from-file" || cfg.ListenAddr != ":8080" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Load(viper.New())
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "RAILWAY_API_TOKEN is required") {
		t.Fatalf("expected missing token error, got %v", err)
	}

	cfg.RailwayAPIToken = "t"
	cfg.GoogleClientID = "only-id"
	err = cfg.ValidateServer()
	if err == nil {
		t.Fatal("expected server validation error")
	}
	for _, want := range []string{"AUTH_SECRET is required", "must be set together"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}

	cfg.AuthSecret = "s"
	cfg.GoogleClientID = ""
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("ValidateServer() error: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GAMENITE_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GAMENITE_TEST_DOTENV", "")
	os.Unsetenv("GAMENITE_TEST_DOTENV")

	if err := config.LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := os.Getenv("GAMENITE_TEST_DOTENV"); got != "loaded" {
		t.Errorf("GAMENITE_TEST_DOTENV = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug"}
	logger, err := cfg.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v", logger.GetLevel())
	}

	cfg.LogLevel = "loud"
	if _, err := cfg.NewLogger(); err == nil {
		t.Error("expected error for unknown level")
	}
}

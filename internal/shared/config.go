package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables understood by the CLI. They overlay whatever the
// config file carries at load time.
const (
	EnvClientID     = "SPOTIFY_CLI_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLI_CLIENT_SECRET"
	EnvTokenFile    = "SPOTIFY_CLI_TOKEN_FILE"
)

// DefaultTokenFileName is the token file created in the user's home
// directory when no path is configured.
const DefaultTokenFileName = ".spotify_cli_token"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials     CredentialsConfig     `toml:"credentials"`
	Auth            AuthConfig            `toml:"auth"`
	Database        DatabaseConfig        `toml:"database"`
	Recommendations RecommendationsConfig `toml:"recommendations"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// AuthConfig contains authorization flow settings.
type AuthConfig struct {
	TokenPath      string `toml:"token_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RecommendationsConfig contains settings for the managed recommendations playlist.
type RecommendationsConfig struct {
	PlaylistID   string `toml:"playlist_id"`
	PlaylistName string `toml:"playlist_name"`
	Limit        int    `toml:"limit"`
}

// HasCredentials reports whether both the client ID and secret are set.
func (s SpotifyConfig) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// LoadDotenv loads a .env file from the working directory when one exists.
// A missing file is not an error.
func LoadDotenv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// LoadConfig reads and parses a TOML configuration file from the specified
// path, then overlays the SPOTIFY_CLI_* environment variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the
// embedded example config, with the environment overlay applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to the specified path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// ResolveTokenPath determines where the token file lives. Precedence:
// the --token-path flag, the SPOTIFY_CLI_TOKEN_FILE environment variable,
// the config file's auth.token_path, then ~/.spotify_cli_token.
func ResolveTokenPath(flagValue string, config *Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(EnvTokenFile); v != "" {
		return v, nil
	}
	if config != nil && config.Auth.TokenPath != "" {
		return config.Auth.TokenPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultTokenFileName), nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv(EnvTokenFile); v != "" {
		c.Auth.TokenPath = v
	}
}

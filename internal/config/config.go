package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. EATSMARTY_SERVER_PORT.
const EnvPrefix = "EATSMARTY"

// ServerConfig configures the HTTP and websocket listener
type ServerConfig struct {
	Port      string `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
	Debug     bool   `mapstructure:"debug"`
}

// DatabaseConfig configures the SQLite file holding stores and the scan log
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DecoderConfig selects and configures the barcode decoder
type DecoderConfig struct {
	Type            string `mapstructure:"type"` // "zxing" or "vertex"
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Model           string `mapstructure:"model"`
}

// OpenFoodFactsConfig configures the product-data API client
type OpenFoodFactsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Decoder       DecoderConfig       `mapstructure:"decoder"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.static_dir", "./static")
	v.SetDefault("server.debug", false)
	v.SetDefault("database.path", "eatsmarty.db")
	v.SetDefault("decoder.type", "zxing")
	v.SetDefault("decoder.project_id", "")
	v.SetDefault("decoder.location", "")
	v.SetDefault("decoder.credentials_file", "")
	v.SetDefault("decoder.model", "gemini-1.5-flash")
	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.net/api/v2")
	v.SetDefault("openfoodfacts.timeout", 10*time.Second)
	v.SetDefault("openfoodfacts.user_agent", "EatSmarty/1.0")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadConfig loads configuration from a JSON or YAML file, then applies
// EATSMARTY_* environment overrides. An empty path uses defaults and env only.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate reports settings the application cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server port is not set")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is not set")
	}
	if c.OpenFoodFacts.Timeout <= 0 {
		return fmt.Errorf("openfoodfacts timeout must be positive, got %s", c.OpenFoodFacts.Timeout)
	}
	switch c.Decoder.Type {
	case "zxing", "vertex":
	default:
		return fmt.Errorf("unsupported decoder type: %s", c.Decoder.Type)
	}
	return nil
}

// GetConfigPath returns the path to the configuration file, or "" when none exists
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	candidates := []string{
		filepath.Join("config", "config.json"),
		filepath.Join("config", "config.yaml"),
		"config.json",
		"config.yaml",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

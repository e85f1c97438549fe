package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/expense-saver/internal/common"
)

// EnvPrefix prefixes every environment override, e.g. SAVER_DATABASE_PATH.
const EnvPrefix = "SAVER"

// Config is the validated application configuration.
type Config struct {
	DatabasePath   string
	LogLevel       string
	LogFormat      string
	Locale         string
	CurrencySymbol string
	CreatedBy      string
	GracePeriod    time.Duration
	PollInterval   time.Duration
}

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("subscriptions.grace_period", time.Second)
	v.SetDefault("subscriptions.poll_interval", 2*time.Second)
	v.SetDefault("display.locale", "id-ID")
	v.SetDefault("display.currency_symbol", "")
	v.SetDefault("entry.created_by", "")
}

// Init points v at the config file and environment. An empty cfgFile searches
// ConfigDir and the working directory for config.yaml. A missing config file
// is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// LoadDotEnv loads environment variables from the given .env files, or from
// ./.env when none are given. Missing files are skipped; variables already
// set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		DatabasePath:   ExpandPath(v.GetString("database.path")),
		LogLevel:       v.GetString("logging.level"),
		LogFormat:      v.GetString("logging.format"),
		GracePeriod:    v.GetDuration("subscriptions.grace_period"),
		PollInterval:   v.GetDuration("subscriptions.poll_interval"),
		Locale:         v.GetString("display.locale"),
		CurrencySymbol: v.GetString("display.currency_symbol"),
		CreatedBy:      v.GetString("entry.created_by"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string

	missingPath := strings.TrimSpace(c.DatabasePath) == ""
	if missingPath {
		problems = append(problems, "database.path must not be empty")
	}
	if _, err := common.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.LogFormat))
	}
	if c.GracePeriod < 0 {
		problems = append(problems, "subscriptions.grace_period must not be negative")
	}
	if c.PollInterval <= 0 {
		problems = append(problems, "subscriptions.poll_interval must be positive")
	}
	if strings.TrimSpace(c.Locale) == "" {
		problems = append(problems, "display.locale must not be empty")
	}

	switch {
	case missingPath:
		return fmt.Errorf("%w: %w: %s", common.ErrInvalidConfig, common.ErrMissingConfig, strings.Join(problems, "; "))
	case len(problems) > 0:
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

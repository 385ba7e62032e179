package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config captures the settings of the office hours service.
type Config struct {
	HTTPPort      int
	Storage       string
	SQLiteDSN     string
	LogLevel      string
	LogFormat     string
	DispatchCron  string
	ReminderCron  string
	DispatchBatch int
	TokenCacheTTL time.Duration

	BootstrapAdminID    string
	BootstrapAdminName  string
	BootstrapAdminEmail string
}

// fileConfig mirrors the YAML file. Every value is kept as text so the file
// and the environment share one parsing path.
type fileConfig struct {
	HTTPPort      string `yaml:"http_port"`
	Storage       string `yaml:"storage"`
	SQLiteDSN     string `yaml:"sqlite_dsn"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	DispatchCron  string `yaml:"dispatch_cron"`
	ReminderCron  string `yaml:"reminder_cron"`
	DispatchBatch string `yaml:"dispatch_batch"`
	TokenCacheTTL string `yaml:"token_cache_ttl"`
	Bootstrap     struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
	} `yaml:"bootstrap_admin"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		"OFFICEHOURS_HTTP_PORT":             f.HTTPPort,
		"OFFICEHOURS_STORAGE":               f.Storage,
		"OFFICEHOURS_SQLITE_DSN":            f.SQLiteDSN,
		"OFFICEHOURS_LOG_LEVEL":             f.LogLevel,
		"OFFICEHOURS_LOG_FORMAT":            f.LogFormat,
		"OFFICEHOURS_DISPATCH_CRON":         f.DispatchCron,
		"OFFICEHOURS_REMINDER_CRON":         f.ReminderCron,
		"OFFICEHOURS_DISPATCH_BATCH":        f.DispatchBatch,
		"OFFICEHOURS_TOKEN_CACHE_TTL":       f.TokenCacheTTL,
		"OFFICEHOURS_BOOTSTRAP_ADMIN_ID":    f.Bootstrap.ID,
		"OFFICEHOURS_BOOTSTRAP_ADMIN_NAME":  f.Bootstrap.Name,
		"OFFICEHOURS_BOOTSTRAP_ADMIN_EMAIL": f.Bootstrap.Email,
	}
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPPort:      8080,
		Storage:       StorageSQLite,
		SQLiteDSN:     "officehours.db",
		LogLevel:      "info",
		LogFormat:     "json",
		DispatchCron:  "@every 1m",
		ReminderCron:  "0 * * * *",
		DispatchBatch: 50,
		TokenCacheTTL: 5 * time.Minute,
	}
}

// Load builds the configuration from, in increasing precedence, the
// defaults, the YAML file named by OFFICEHOURS_CONFIG_FILE and the process
// environment. A .env file (OFFICEHOURS_ENV_FILE, default ".env") is loaded
// into the environment first when present; it never overrides variables that
// are already set.
//
// Invalid and missing values are collected and reported together.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	values := map[string]string{}
	if path := strings.TrimSpace(os.Getenv("OFFICEHOURS_CONFIG_FILE")); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for key, value := range file.values() {
			values[key] = strings.TrimSpace(value)
		}
	}
	for key := range (fileConfig{}).values() {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			values[key] = value
		}
	}

	return parse(values)
}

func loadDotEnv() error {
	path := strings.TrimSpace(os.Getenv("OFFICEHOURS_ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func readFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fileConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return file, nil
}

func parse(values map[string]string) (Config, error) {
	cfg := Default()
	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if value := values["OFFICEHOURS_HTTP_PORT"]; value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "OFFICEHOURS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := strings.ToLower(values["OFFICEHOURS_STORAGE"]); value != "" {
		switch value {
		case StorageSQLite, StorageMemory:
			cfg.Storage = value
		default:
			invalid = append(invalid, "OFFICEHOURS_STORAGE")
		}
	}

	if value := values["OFFICEHOURS_SQLITE_DSN"]; value != "" {
		cfg.SQLiteDSN = value
	}

	if value := strings.ToLower(values["OFFICEHOURS_LOG_LEVEL"]); value != "" {
		switch value {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = value
		default:
			invalid = append(invalid, "OFFICEHOURS_LOG_LEVEL")
		}
	}

	if value := strings.ToLower(values["OFFICEHOURS_LOG_FORMAT"]); value != "" {
		switch value {
		case "json", "text":
			cfg.LogFormat = value
		default:
			invalid = append(invalid, "OFFICEHOURS_LOG_FORMAT")
		}
	}

	for key, target := range map[string]*string{
		"OFFICEHOURS_DISPATCH_CRON": &cfg.DispatchCron,
		"OFFICEHOURS_REMINDER_CRON": &cfg.ReminderCron,
	} {
		value := values[key]
		if value == "" {
			continue
		}
		if _, err := cron.ParseStandard(value); err != nil {
			invalid = append(invalid, key)
			continue
		}
		*target = value
	}

	if value := values["OFFICEHOURS_DISPATCH_BATCH"]; value != "" {
		batch, err := strconv.Atoi(value)
		if err != nil || batch <= 0 {
			invalid = append(invalid, "OFFICEHOURS_DISPATCH_BATCH")
		} else {
			cfg.DispatchBatch = batch
		}
	}

	if value := values["OFFICEHOURS_TOKEN_CACHE_TTL"]; value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "OFFICEHOURS_TOKEN_CACHE_TTL")
		} else {
			cfg.TokenCacheTTL = ttl
		}
	}

	cfg.BootstrapAdminID = values["OFFICEHOURS_BOOTSTRAP_ADMIN_ID"]
	cfg.BootstrapAdminName = values["OFFICEHOURS_BOOTSTRAP_ADMIN_NAME"]
	cfg.BootstrapAdminEmail = values["OFFICEHOURS_BOOTSTRAP_ADMIN_EMAIL"]
	if cfg.BootstrapAdminID != "" {
		if cfg.BootstrapAdminName == "" {
			missing = append(missing, "OFFICEHOURS_BOOTSTRAP_ADMIN_NAME")
		}
		if cfg.BootstrapAdminEmail == "" {
			missing = append(missing, "OFFICEHOURS_BOOTSTRAP_ADMIN_EMAIL")
		}
	}

	// Map iteration above makes the order of invalid keys unstable.
	sort.Strings(invalid)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required configuration values are missing: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("configuration values are invalid: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

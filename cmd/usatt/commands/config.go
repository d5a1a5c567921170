package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	"usatt/internal/components/telemetry"
	"usatt/internal/scrapers/usatt"
	"usatt/pkg/configutil"

	"github.com/joho/godotenv"
)

const configName = "usatt.json5"

type Config struct {
	BaseUrl           string  `json:"base_url"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	// RequestsPerSecond <= 0 disables rate limiting, a 0 in a config file is
	// indistinguishable from unset so use -1 there.
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`

	// PageSlack is a pointer so that a 0 in a config file is kept.
	PageSlack *int `json:"page_slack"`
	MaxPages  int  `json:"max_pages"`

	// Database is a sqlite path or a libsql url results are also saved to.
	Database string               `json:"database"`
	Otlp     telemetry.OtlpConfig `json:"otlp"`
}

func DefaultConfig() Config {
	pageSlack := usatt.DefaultPageSlack
	return Config{
		BaseUrl:           usatt.DefaultBaseUrl,
		TimeoutSeconds:    int(usatt.DefaultTimeout / time.Second),
		RequestsPerSecond: 2,
		UserAgent:         usatt.DefaultUserAgent,
		PageSlack:         &pageSlack,
		MaxPages:          usatt.DefaultMaxPages,
	}
}

// LoadConfig reads the config at `path`, or searches for usatt.json5 up from
// the current directory if `path` is empty, then applies environment overrides
// (a .env file in the current directory is loaded first).
func LoadConfig(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	config := DefaultConfig()
	if path == "" {
		config, _, err = configutil.ReadRecursively(configName, config)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		config, err = configutil.ReadConfig(path, config)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	err = applyEnv(&config, os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("USATT_BASE_URL"); ok && v != "" {
		config.BaseUrl = v
	}
	if v, ok := lookup("USATT_DATABASE"); ok && v != "" {
		config.Database = v
	}
	if v, ok := lookup("USATT_TIMEOUT"); ok && v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("USATT_TIMEOUT: %w", err)
		}
		config.TimeoutSeconds = seconds
	}
	if v, ok := lookup("USATT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("USATT_RPS: %w", err)
		}
		config.RequestsPerSecond = rps
	}
	return nil
}

func (c Config) clientOptions() usatt.ClientOptions {
	return usatt.ClientOptions{
		BaseUrl:           c.BaseUrl,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		UserAgent:         c.UserAgent,
		CloudflareBypass:  c.CloudflareBypass,
		PageSlack:         c.PageSlack,
		MaxPages:          c.MaxPages,
	}
}

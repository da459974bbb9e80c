package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Catalog  CatalogConfig
	Download DownloadConfig
	Search   SearchConfig
	UI       UIConfig
	Log      LogConfig
}

// CatalogConfig locates the remote collection.
type CatalogConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	IndexURL          string        `mapstructure:"index_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// DownloadConfig holds defaults for the download command.
type DownloadConfig struct {
	Dest   string
	Format string
}

type SearchConfig struct {
	Limit int
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Prompt  string
	Columns int // cells per row block in range tables
}

type LogConfig struct {
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "https://sparse.tamu.edu")
	v.SetDefault("catalog.index_url", "https://sparse.tamu.edu/files/ssstats.csv")
	v.SetDefault("catalog.requests_per_second", 2)
	v.SetDefault("catalog.timeout", "2m")
	v.SetDefault("download.dest", ".")
	v.SetDefault("download.format", "market")
	v.SetDefault("search.limit", 10)
	v.SetDefault("ui.prompt", ">> ")
	v.SetDefault("ui.columns", 10)
	v.SetDefault("log.level", "info")
}

// DefaultPath is the config file used when neither a flag nor
// MTXSHELL_CONFIG names one.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "mtxshell", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix
// MTXSHELL_. An explicit path (or MTXSHELL_CONFIG) must exist; the default
// location is optional.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("MTXSHELL_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MTXSHELL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values no command could work with.
func (c Config) Validate() error {
	var errs []error
	if c.Catalog.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("catalog.requests_per_second must not be negative"))
	}
	if c.Catalog.Timeout < 0 {
		errs = append(errs, fmt.Errorf("catalog.timeout must not be negative"))
	}
	if c.Search.Limit <= 0 {
		errs = append(errs, fmt.Errorf("search.limit must be positive"))
	}
	if c.UI.Columns <= 0 {
		errs = append(errs, fmt.Errorf("ui.columns must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// fileLayout mirrors Config as written to disk.
type fileLayout struct {
	Catalog struct {
		BaseURL           string  `toml:"base_url"`
		IndexURL          string  `toml:"index_url"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		Timeout           string  `toml:"timeout"`
	} `toml:"catalog"`
	Download struct {
		Dest   string `toml:"dest"`
		Format string `toml:"format"`
	} `toml:"download"`
	Search struct {
		Limit int `toml:"limit"`
	} `toml:"search"`
	UI struct {
		Prompt  string `toml:"prompt"`
		Columns int    `toml:"columns"`
	} `toml:"ui"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Write stores cfg at path as TOML, creating the directory if needed. An
// existing file is left alone unless overwrite is set.
func Write(path string, cfg Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	var f fileLayout
	f.Catalog.BaseURL = cfg.Catalog.BaseURL
	f.Catalog.IndexURL = cfg.Catalog.IndexURL
	f.Catalog.RequestsPerSecond = cfg.Catalog.RequestsPerSecond
	f.Catalog.Timeout = cfg.Catalog.Timeout.String()
	f.Download.Dest = cfg.Download.Dest
	f.Download.Format = cfg.Download.Format
	f.Search.Limit = cfg.Search.Limit
	f.UI.Prompt = cfg.UI.Prompt
	f.UI.Columns = cfg.UI.Columns
	f.Log.Level = cfg.Log.Level

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := toml.NewEncoder(out).Encode(f); err != nil {
		out.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return out.Close()
}

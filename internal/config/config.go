package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	// Nested keys use a double underscore: HBS_REMOTE__BASE_URL -> remote.base_url
	EnvPrefix = "HBS_"

	// EnvConfigFile names the JSON config file when no path is given explicitly
	EnvConfigFile = EnvPrefix + "CONFIG"

	// DefaultEnvFile is loaded into the process environment when present
	DefaultEnvFile = ".env"
)

// Config is the full application configuration
type Config struct {
	Server ServerConfig `koanf:"server"`
	Remote RemoteConfig `koanf:"remote"`
	Log    LogConfig    `koanf:"log"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	MaxRows         int           `koanf:"max_rows" validate:"min=1"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes" validate:"min=1"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Debug           bool          `koanf:"debug"`
}

// RemoteConfig points at the hospital directory service
type RemoteConfig struct {
	BaseURL      string        `koanf:"base_url" validate:"required,http_url"`
	BatchTimeout time.Duration `koanf:"batch_timeout" validate:"gt=0"`
	ProxyTimeout time.Duration `koanf:"proxy_timeout" validate:"gt=0"`
}

// LogConfig configures logging
type LogConfig struct {
	Level      string `koanf:"level" validate:"oneof=trace debug info warn warning error"`
	Format     string `koanf:"format" validate:"oneof=text json"`
	Console    bool   `koanf:"console"`
	Dir        string `koanf:"dir"`
	Filename   string `koanf:"filename"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
}

// Options converts the log section into logging options
func (c LogConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		Console:    c.Console,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8000,
			MaxRows:         20,
			MaxUploadBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Remote: RemoteConfig{
			BaseURL:      "https://hospital-directory.onrender.com",
			BatchTimeout: 20 * time.Second,
			ProxyTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "text",
			Console: true,
		},
	}
}

// LoadOptions selects the optional sources read by Load
type LoadOptions struct {
	// File is a JSON config file. Empty falls back to $HBS_CONFIG, then to no file.
	File string
	// EnvFile is a dotenv file. Empty falls back to DefaultEnvFile; a missing file is not an error.
	EnvFile string
}

// Load builds the configuration. Sources, lowest priority first:
// defaults, JSON file, dotenv file, environment.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// 2. JSON file
	path := opts.File
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", path, err)
		}
	}

	// 3. dotenv, merged into the process environment without overriding it
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %q: %w", envFile, err)
	}

	// 4. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps HBS_REMOTE__BASE_URL to remote.base_url.
// Returning "" makes koanf skip the variable.
func envKey(s string) string {
	if s == EnvConfigFile {
		return ""
	}
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

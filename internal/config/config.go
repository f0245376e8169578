// Package config loads settings for the topicmux command line tools.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults
//  2. .env files (exported into the process environment)
//  3. the YAML config file
//  4. TOPICMUX_* environment variables
//  5. flags the user set explicitly
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TOPICMUX_"

// Defaults.
const (
	DefaultPath                 = "adonis-ws"
	DefaultEncoder              = "json"
	DefaultReconnectionAttempts = 10
	DefaultReconnectionDelay    = time.Second
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultDiscoverTimeout      = 5 * time.Second
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrReadConfig    = errors.New("read config")
)

// Config holds CLI settings.
type Config struct {
	URL     string `yaml:"url" env:"URL"`
	Path    string `yaml:"path" env:"PATH"`
	Encoder string `yaml:"encoder" env:"ENCODER"`

	Reconnection         bool          `yaml:"reconnection" env:"RECONNECTION"`
	ReconnectionAttempts int           `yaml:"reconnectionAttempts" env:"RECONNECTION_ATTEMPTS"`
	ReconnectionDelay    time.Duration `yaml:"reconnectionDelay" env:"RECONNECTION_DELAY"`

	Query map[string]string `yaml:"query" env:"QUERY"`

	Auth Auth `yaml:"auth" envPrefix:"AUTH_"`

	LogLevel    string `yaml:"logLevel" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"logFormat" env:"LOG_FORMAT"`
	ProtocolLog string `yaml:"protocolLog" env:"PROTOCOL_LOG"`
	MetricsAddr string `yaml:"metricsAddr" env:"METRICS_ADDR"`

	Discover          bool          `yaml:"discover" env:"DISCOVER"`
	DiscoverInstance  string        `yaml:"discoverInstance" env:"DISCOVER_INSTANCE"`
	DiscoverInterface string        `yaml:"discoverInterface" env:"DISCOVER_INTERFACE"`
	DiscoverTimeout   time.Duration `yaml:"discoverTimeout" env:"DISCOVER_TIMEOUT"`
}

// Auth selects at most one authentication method.
type Auth struct {
	JWT      string `yaml:"jwt" env:"JWT"`
	APIToken string `yaml:"apiToken" env:"API_TOKEN"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Path:                 DefaultPath,
		Encoder:              DefaultEncoder,
		Reconnection:         true,
		ReconnectionAttempts: DefaultReconnectionAttempts,
		ReconnectionDelay:    DefaultReconnectionDelay,
		LogLevel:             DefaultLogLevel,
		LogFormat:            DefaultLogFormat,
		DiscoverTimeout:      DefaultDiscoverTimeout,
	}
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// File is the YAML config path. Empty skips the file.
	File string

	// EnvFiles are loaded with godotenv before the environment is read.
	// Missing files are ignored. Nil means ".env".
	EnvFiles []string

	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

// Load builds a Config from defaults, env files, the YAML file and the
// environment. The result is not validated; flags may still complete it.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: env file %s: %w", ErrReadConfig, f, err)
		}
	}

	if opts.File != "" {
		if err := loadFile(opts.File, &cfg); err != nil {
			return Config{}, err
		}
	}

	envOpts := env.Options{Prefix: EnvPrefix}
	if opts.Environ != nil {
		envOpts.Environment = opts.Environ
	}
	if err := env.ParseWithOptions(&cfg, envOpts); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %w", ErrReadConfig, err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadConfig, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrReadConfig, path, err)
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.URL == "" && !c.Discover {
		return fmt.Errorf("%w: url is required unless discover is set", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Encoder) {
	case "json", "cbor":
	default:
		return fmt.Errorf("%w: unknown encoder %q", ErrInvalidConfig, c.Encoder)
	}
	if c.ReconnectionAttempts < 0 {
		return fmt.Errorf("%w: reconnectionAttempts must not be negative", ErrInvalidConfig)
	}
	if c.ReconnectionDelay < 0 {
		return fmt.Errorf("%w: reconnectionDelay must not be negative", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}

	methods := 0
	if c.Auth.JWT != "" {
		methods++
	}
	if c.Auth.APIToken != "" {
		methods++
	}
	if c.Auth.Username != "" || c.Auth.Password != "" {
		methods++
	}
	if methods > 1 {
		return fmt.Errorf("%w: choose one of jwt, apiToken or username/password", ErrInvalidConfig)
	}
	return nil
}

// Flags holds command line overrides registered by RegisterFlags.
type Flags struct {
	fs     *flag.FlagSet
	File   string
	values Config
}

// RegisterFlags adds the config flags to fs. Call Apply after fs.Parse.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	d := Default()

	fs.StringVar(&f.File, "config", "", "YAML config file")
	fs.StringVar(&f.values.URL, "url", "", "server base URL (ws://, wss://, http:// or https://)")
	fs.StringVar(&f.values.Path, "path", d.Path, "WebSocket endpoint path")
	fs.StringVar(&f.values.Encoder, "encoder", d.Encoder, "wire encoder: json or cbor")
	fs.BoolVar(&f.values.Reconnection, "reconnect", d.Reconnection, "reconnect after the transport drops")
	fs.IntVar(&f.values.ReconnectionAttempts, "reconnect-attempts", d.ReconnectionAttempts, "reconnect attempts before giving up")
	fs.DurationVar(&f.values.ReconnectionDelay, "reconnect-delay", d.ReconnectionDelay, "base reconnect delay")
	fs.StringVar(&f.values.Auth.JWT, "jwt", "", "JWT token")
	fs.StringVar(&f.values.Auth.APIToken, "api-token", "", "API token")
	fs.StringVar(&f.values.Auth.Username, "username", "", "basic auth username")
	fs.StringVar(&f.values.Auth.Password, "password", "", "basic auth password")
	fs.StringVar(&f.values.LogLevel, "log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&f.values.LogFormat, "log-format", d.LogFormat, "log format: text or json")
	fs.StringVar(&f.values.ProtocolLog, "protocol-log", "", "write protocol events to this .tlog file")
	fs.StringVar(&f.values.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.BoolVar(&f.values.Discover, "discover", false, "find the server with mDNS")
	fs.StringVar(&f.values.DiscoverInstance, "discover-instance", "", "mDNS instance name to connect to")
	fs.StringVar(&f.values.DiscoverInterface, "discover-interface", "", "network interface for mDNS")
	fs.DurationVar(&f.values.DiscoverTimeout, "discover-timeout", d.DiscoverTimeout, "mDNS lookup timeout")

	return f
}

// Apply copies flags that were set on the command line onto cfg and
// validates the result.
func (f *Flags) Apply(cfg *Config) error {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "url":
			cfg.URL = f.values.URL
		case "path":
			cfg.Path = f.values.Path
		case "encoder":
			cfg.Encoder = f.values.Encoder
		case "reconnect":
			cfg.Reconnection = f.values.Reconnection
		case "reconnect-attempts":
			cfg.ReconnectionAttempts = f.values.ReconnectionAttempts
		case "reconnect-delay":
			cfg.ReconnectionDelay = f.values.ReconnectionDelay
		case "jwt":
			cfg.Auth = Auth{JWT: f.values.Auth.JWT}
		case "api-token":
			cfg.Auth = Auth{APIToken: f.values.Auth.APIToken}
		case "username":
			cfg.Auth.JWT, cfg.Auth.APIToken = "", ""
			cfg.Auth.Username = f.values.Auth.Username
		case "password":
			cfg.Auth.JWT, cfg.Auth.APIToken = "", ""
			cfg.Auth.Password = f.values.Auth.Password
		case "log-level":
			cfg.LogLevel = f.values.LogLevel
		case "log-format":
			cfg.LogFormat = f.values.LogFormat
		case "protocol-log":
			cfg.ProtocolLog = f.values.ProtocolLog
		case "metrics-addr":
			cfg.MetricsAddr = f.values.MetricsAddr
		case "discover":
			cfg.Discover = f.values.Discover
		case "discover-instance":
			cfg.DiscoverInstance = f.values.DiscoverInstance
		case "discover-interface":
			cfg.DiscoverInterface = f.values.DiscoverInterface
		case "discover-timeout":
			cfg.DiscoverTimeout = f.values.DiscoverTimeout
		}
	})
	return cfg.Validate()
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bassista/template_preload/internal/logger"
)

const (
	EnvPrefix = "PRELOAD"

	RuntimeTypeDocker = "docker"
	RuntimeTypeMemory = "memory"
)

// Config is the fully resolved configuration of the preloader and the template stub.
type Config struct {
	Data    DataConfig
	Target  TargetConfig
	Preload PreloadConfig
	Wait    WaitConfig
	Stub    StubConfig
	Misc    MiscConfig
}

// DataConfig describes where the template batch comes from.
type DataConfig struct {
	FilePath string
	Strict   bool
	Watch    bool
}

// TargetConfig describes the templates endpoint.
type TargetConfig struct {
	URL                string
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
}

type PreloadConfig struct {
	Delay   time.Duration
	Confirm bool
}

// WaitConfig gates the first request on a container being up.
// An empty Container disables the gate.
type WaitConfig struct {
	Container   string
	RuntimeType string
	Poll        time.Duration
	Timeout     time.Duration
}

type StubConfig struct {
	Port            int
	RequestTimeout  time.Duration
	ShutDownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

type MiscConfig struct {
	LogLevel string
	GinMode  string
}

// flagBindings maps CLI flag names to configuration keys.
var flagBindings = map[string]string{
	"file":           "data.file_path",
	"strict":         "data.strict",
	"watch":          "data.watch",
	"url":            "target.url",
	"insecure":       "target.insecure_skip_verify",
	"timeout":        "target.request_timeout",
	"delay":          "preload.delay",
	"confirm":        "preload.confirm",
	"wait-container": "wait.container",
	"wait-runtime":   "wait.runtime",
	"log-level":      "misc.log_level",
	"port":           "stub.port",
}

// LoadConfig resolves configuration from defaults, config.yaml, .env, environment
// variables (PRELOAD_<SECTION>_<KEY>) and, when given, command line flags.
func LoadConfig(flags ...*pflag.FlagSet) (*Config, error) {
	envFile := getEnvOrDefault("PRELOAD_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnvOrDefault("PRELOAD_CONFIG_PATH", "./config"))

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Debug("no config file found, using defaults and env vars")
	}

	for _, flagSet := range flags {
		if err := bindFlags(v, flagSet); err != nil {
			return nil, err
		}
	}

	port, err := getEnvOrViperPort(v, "PORT", "stub.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Data: DataConfig{
			FilePath: v.GetString("data.file_path"),
			Strict:   v.GetBool("data.strict"),
			Watch:    v.GetBool("data.watch"),
		},
		Target: TargetConfig{
			URL:                v.GetString("target.url"),
			InsecureSkipVerify: v.GetBool("target.insecure_skip_verify"),
			RequestTimeout:     v.GetDuration("target.request_timeout"),
		},
		Preload: PreloadConfig{
			Delay:   v.GetDuration("preload.delay"),
			Confirm: v.GetBool("preload.confirm"),
		},
		Wait: WaitConfig{
			Container:   v.GetString("wait.container"),
			RuntimeType: v.GetString("wait.runtime"),
			Poll:        v.GetDuration("wait.poll"),
			Timeout:     v.GetDuration("wait.timeout"),
		},
		Stub: StubConfig{
			Port:            port,
			RequestTimeout:  v.GetDuration("stub.request_timeout"),
			ShutDownTimeout: v.GetDuration("stub.shutdown_timeout"),
			ReadTimeout:     v.GetDuration("stub.read_timeout"),
			WriteTimeout:    v.GetDuration("stub.write_timeout"),
			IdleTimeout:     v.GetDuration("stub.idle_timeout"),
		},
		Misc: MiscConfig{
			LogLevel: v.GetString("misc.log_level"),
			GinMode:  v.GetString("misc.gin_mode"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.file_path", "samplepreload.json")
	v.SetDefault("data.strict", false)
	v.SetDefault("data.watch", false)

	v.SetDefault("target.url", "http://cps-tbdmt:8080/templates")
	v.SetDefault("target.insecure_skip_verify", false)
	v.SetDefault("target.request_timeout", time.Duration(0))

	v.SetDefault("preload.delay", 8*time.Second)
	v.SetDefault("preload.confirm", false)

	v.SetDefault("wait.container", "")
	v.SetDefault("wait.runtime", RuntimeTypeDocker)
	v.SetDefault("wait.poll", 2*time.Second)
	v.SetDefault("wait.timeout", 2*time.Minute)

	v.SetDefault("stub.port", 8080)
	v.SetDefault("stub.request_timeout", 1*time.Second)
	v.SetDefault("stub.shutdown_timeout", 5*time.Second)
	v.SetDefault("stub.read_timeout", 10*time.Second)
	v.SetDefault("stub.write_timeout", 10*time.Second)
	v.SetDefault("stub.idle_timeout", 120*time.Second)

	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")
}

// bindFlags binds only the flags the command actually declares.
func bindFlags(v *viper.Viper, flagSet *pflag.FlagSet) error {
	if flagSet == nil {
		return nil
	}
	for name, key := range flagBindings {
		f := flagSet.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Data.FilePath) == "" {
		return errors.New("data.file_path must not be empty")
	}

	u, err := url.Parse(c.Target.URL)
	if err != nil {
		return fmt.Errorf("target.url is invalid: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("target.url must be an absolute http(s) URL, got %q", c.Target.URL)
	}
	if c.Target.RequestTimeout < 0 {
		return errors.New("target.request_timeout must not be negative")
	}
	if c.Preload.Delay < 0 {
		return errors.New("preload.delay must not be negative")
	}

	switch c.Wait.RuntimeType {
	case RuntimeTypeDocker, RuntimeTypeMemory, "":
	default:
		return fmt.Errorf("wait.runtime must be one of %s, %s; got %q", RuntimeTypeDocker, RuntimeTypeMemory, c.Wait.RuntimeType)
	}
	if c.Wait.Container != "" {
		if c.Wait.Poll <= 0 {
			return errors.New("wait.poll must be positive")
		}
		if c.Wait.Timeout <= 0 {
			return errors.New("wait.timeout must be positive")
		}
	}

	if c.Stub.Port <= 0 || c.Stub.Port > 65535 {
		return fmt.Errorf("stub.port must be between 1 and 65535, got %d", c.Stub.Port)
	}
	if c.Stub.ShutDownTimeout < 0 || c.Stub.RequestTimeout < 0 {
		return errors.New("stub timeouts must not be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrViperPort(v *viper.Viper, envKey, viperKey string) (int, error) {
	if value := os.Getenv(envKey); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", envKey, value, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}

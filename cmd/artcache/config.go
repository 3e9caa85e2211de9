package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ericselin/artcache"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// URL of the artwork collection at the origin.
	Endpoint string `yaml:"endpoint" env:"ARTCACHE_ENDPOINT"`
	// Key the catalog is stored under.
	Key string `yaml:"key" env:"ARTCACHE_KEY"`
	// Storage provider, "sqlite" or "memory".
	Provider  string `yaml:"provider" env:"ARTCACHE_PROVIDER"`
	DB        string `yaml:"db" env:"ARTCACHE_DB"`
	Namespace string `yaml:"namespace" env:"ARTCACHE_NAMESPACE"`
	// Credential of the signed-in user. Not read from the config file.
	Token   string        `yaml:"-" env:"ARTCACHE_TOKEN"`
	MaxAge  time.Duration `yaml:"maxAge" env:"ARTCACHE_MAX_AGE"`
	Timeout time.Duration `yaml:"timeout" env:"ARTCACHE_TIMEOUT"`
	Port    int           `yaml:"port" env:"ARTCACHE_PORT"`
	// Further catalog views stored next to the main one, resolved by warm.
	Sources []ConfigSource `yaml:"sources"`
	// Items shown when the catalog cannot be read.
	Fallback []artcache.Item `yaml:"fallback"`
}

type ConfigSource struct {
	Key      string `yaml:"key"`
	Endpoint string `yaml:"endpoint"`
}

func defaultConfig() Config {
	return Config{
		Key:      artcache.DefaultKey,
		Provider: "sqlite",
		DB:       "artcache.db",
		Timeout:  10 * time.Second,
		Port:     8080,
	}
}

func getConfig(filename string, config *Config) error {
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(configBytes, config)
}

// loadConfig reads the defaults, then the config file if given, then the environment.
func loadConfig(filename string) (Config, error) {
	config := defaultConfig()
	if filename != "" {
		if err := getConfig(filename, &config); err != nil {
			return config, fmt.Errorf("read config %s: %w", filename, err)
		}
	}
	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse env: %w", err)
	}
	return config, config.validate()
}

func (c Config) validate() error {
	switch c.Provider {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Provider)
	}
	for _, src := range c.Sources {
		if src.Key == "" || src.Endpoint == "" {
			return errors.New("source needs both key and endpoint")
		}
		if src.Key == c.Key {
			return fmt.Errorf("source key %q is used by the main catalog", src.Key)
		}
	}
	return nil
}

// bindFlags registers the command line overrides on fs.
func bindFlags(fs *flag.FlagSet, overrides *Config) {
	fs.StringVar(&overrides.Endpoint, "endpoint", "", "Origin URL of the artwork collection")
	fs.StringVar(&overrides.Key, "key", "", "Key the catalog is stored under")
	fs.StringVar(&overrides.Provider, "provider", "", "Storage provider (sqlite or memory)")
	fs.StringVar(&overrides.DB, "db", "", "Cache DB file name (use 'memory' for in-memory db)")
	fs.StringVar(&overrides.Namespace, "namespace", "", "Namespace of the cache records")
	fs.StringVar(&overrides.Token, "token", "", "Bearer token for origin requests")
	fs.DurationVar(&overrides.MaxAge, "max-age", 0, "Refetch stored catalogs older than this (0 disables)")
	fs.DurationVar(&overrides.Timeout, "timeout", 0, "Origin request timeout")
	fs.IntVar(&overrides.Port, "port", 0, "Port to listen on")
}

// applyFlags copies the flags that were set on the command line into config.
func applyFlags(config *Config, overrides Config, visit func(func(*flag.Flag))) {
	visit(func(f *flag.Flag) {
		switch f.Name {
		case "endpoint":
			config.Endpoint = overrides.Endpoint
		case "key":
			config.Key = overrides.Key
		case "provider":
			config.Provider = overrides.Provider
		case "db":
			config.DB = overrides.DB
		case "namespace":
			config.Namespace = overrides.Namespace
		case "token":
			config.Token = overrides.Token
		case "max-age":
			config.MaxAge = overrides.MaxAge
		case "timeout":
			config.Timeout = overrides.Timeout
		case "port":
			config.Port = overrides.Port
		}
	})
}

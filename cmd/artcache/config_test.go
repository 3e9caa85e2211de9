package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfigFile = `
endpoint: https://shop.example.com/api/artworks
provider: memory
maxAge: 5m
port: 8081
sources:
  - key: featured
    endpoint: https://shop.example.com/api/featured
fallback:
  - id: "1"
    title: Harbor at Dusk
    price: 120
    category: Painting
    available: true
`

func writeConfig(t *testing.T, content string) string {
	filename := filepath.Join(t.TempDir(), "artcache.yaml")
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return filename
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Provider != "sqlite" || config.Key != "artworks" || config.Port != 8080 {
		t.Fatalf("Defaults are %+v", config)
	}
}

func TestLoadConfigFile(t *testing.T) {
	config, err := loadConfig(writeConfig(t, testConfigFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Endpoint != "https://shop.example.com/api/artworks" {
		t.Fatalf("Endpoint is %s", config.Endpoint)
	}
	if config.MaxAge != 5*time.Minute || config.Port != 8081 || config.Provider != "memory" {
		t.Fatalf("Config is %+v", config)
	}
	if config.Key != "artworks" || config.Timeout != 10*time.Second {
		t.Fatalf("Defaults lost: %+v", config)
	}
	if len(config.Sources) != 1 || config.Sources[0].Key != "featured" {
		t.Fatalf("Sources are %+v", config.Sources)
	}
	if len(config.Fallback) != 1 || config.Fallback[0].Title != "Harbor at Dusk" || config.Fallback[0].Price != 120 || !config.Fallback[0].Available {
		t.Fatalf("Fallback is %+v", config.Fallback)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ARTCACHE_ENDPOINT", "http://localhost:3000/artworks")
	t.Setenv("ARTCACHE_MAX_AGE", "30s")
	t.Setenv("ARTCACHE_TOKEN", "s3cret")

	config, err := loadConfig(writeConfig(t, testConfigFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Endpoint != "http://localhost:3000/artworks" || config.MaxAge != 30*time.Second {
		t.Fatalf("Config is %+v", config)
	}
	if config.Token != "s3cret" {
		t.Fatal("Token not read from env")
	}
	if config.Port != 8081 {
		t.Fatalf("Port is %d", config.Port)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ARTCACHE_PORT", "9000")
	t.Setenv("ARTCACHE_NAMESPACE", "shop")
	config, err := loadConfig(writeConfig(t, testConfigFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var o Config
	fs := flag.NewFlagSet("artcache", flag.ContinueOnError)
	bindFlags(fs, &o)
	if err := fs.Parse([]string{"-port", "9090", "-db", "memory", "-namespace", "gallery"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	applyFlags(&config, o, fs.Visit)

	if config.Port != 9090 || config.DB != "memory" || config.Namespace != "gallery" {
		t.Fatalf("Config is %+v", config)
	}
	if config.Endpoint != "https://shop.example.com/api/artworks" || config.MaxAge != 5*time.Minute {
		t.Fatalf("Unset flags overrode config: %+v", config)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Missing file accepted")
	}
	if _, err := loadConfig(writeConfig(t, "provider: redis\n")); err == nil {
		t.Fatal("Unknown provider accepted")
	}
	if _, err := loadConfig(writeConfig(t, "sources:\n  - key: artworks\n    endpoint: http://x\n")); err == nil {
		t.Fatal("Source shadowing the main catalog accepted")
	}
}

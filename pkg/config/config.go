package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	ToolHost  ToolHostConfig            `json:"tool_host" yaml:"tool_host"`
	Memory    MemoryConfig              `json:"memory" yaml:"memory"`
}

type AppConfig struct {
	Name       string `json:"name" yaml:"name"`
	PromptsDir string `json:"prompts_dir" yaml:"prompts_dir"`
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey     string `json:"api_key" yaml:"api_key"`
	Model      string `json:"model" yaml:"model"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Structured bool   `json:"structured" yaml:"structured"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
}

// ToolHostConfig describes the external tool host process.
type ToolHostConfig struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env" yaml:"env"`
}

type MemoryConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LoadConfig reads a JSON or YAML config file, chosen by extension.
func LoadConfig(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	return &cfg
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled {
		return tg, true
	}
	return GatewayConfig{}, false
}

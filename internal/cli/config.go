package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the taskvault.yaml configuration structure
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`

	Database struct {
		URL            string `yaml:"url"`
		MaxConnections int    `yaml:"max_connections"`
		AutoMigrate    bool   `yaml:"auto_migrate"`
	} `yaml:"database"`

	Auth struct {
		Secret          string `yaml:"secret"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`

	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"llm"`
}

// LoadConfig reads the yaml config, falling back through the default search
// locations when path is empty. A missing file yields nil, not an error.
func LoadConfig(path string) (*Config, error) {
	// Side effects from a local .env are applied before env lookups below.
	_ = godotenv.Load()

	if path == "" {
		path = findConfigPath()
		if path == "" {
			config := &Config{}
			applyDefaults(config)
			return config, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if config.Database.URL == "" {
		config.Database.URL = os.Getenv("DATABASE_URL")
	}
	if config.Database.MaxConnections == 0 {
		config.Database.MaxConnections = 25
	}
	if config.Auth.Secret == "" {
		config.Auth.Secret = os.Getenv("TASKVAULT_SECRET")
	}
	if config.Auth.TokenTTLMinutes == 0 {
		config.Auth.TokenTTLMinutes = 60
	}
	if config.Cache.TTLSeconds == 0 {
		config.Cache.TTLSeconds = 60
	}
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func findConfigPath() string {
	if path := os.Getenv("TASKVAULT_CONFIG"); path != "" {
		return path
	}

	locations := []string{"taskvault.yaml", "taskvault.yml", ".taskvault.yaml", ".taskvault.yml"}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

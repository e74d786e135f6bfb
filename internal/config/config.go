package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Bind      string `yaml:"bind"`
		Port      string `yaml:"port"`
		PublicURL string `yaml:"publicUrl"`
	} `yaml:"server"`
	Manager struct {
		Password string `yaml:"password"`
	} `yaml:"manager"`
	Game struct {
		StartCountdown int `yaml:"startCountdown"` // seconds before question 0, defaults to 3
	} `yaml:"game"`
	Questions struct {
		File string `yaml:"file"`
		Bank string `yaml:"bank"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// StartCountdown returns the configured pre-game countdown, defaulting to 3s.
func (c Config) StartCountdown() int {
	if c.Game.StartCountdown <= 0 {
		return 3
	}
	return c.Game.StartCountdown
}

// BankName returns the configured bank id, defaulting to "default".
func (c Config) BankName() string {
	if c.Questions.Bank == "" {
		return "default"
	}
	return c.Questions.Bank
}

// QuestionsFile returns the JSON bank path, defaulting to ./questions.json.
func (c Config) QuestionsFile() string {
	if c.Questions.File == "" {
		return "questions.json"
	}
	return c.Questions.File
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Chainsaw ChainsawConfig `yaml:"chainsaw"`
}

// ChainsawConfig is the project configuration.
type ChainsawConfig struct {
	Rules   RulesConfig   `yaml:"rules"`
	Hunt    HuntConfig    `yaml:"hunt"`
	Source  SourceConfig  `yaml:"source"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// RulesConfig controls rule discovery and filtering (loader.Options).
type RulesConfig struct {
	Dirs        []string `yaml:"dirs"`
	Mapping     []string `yaml:"mapping"`
	Levels      []string `yaml:"levels"`
	Statuses    []string `yaml:"statuses"`
	Kinds       []string `yaml:"kinds"`
	Exclusions  []string `yaml:"exclusions"`
	AllowAdmit  bool     `yaml:"allow_default_admission"`
}

// HuntConfig controls hunter.Options.
type HuntConfig struct {
	Workers    int        `yaml:"workers"`
	From       *time.Time `yaml:"from"`
	To         *time.Time `yaml:"to"`
	SkipErrors bool       `yaml:"skip_errors"`
}

// SourceConfig selects and configures the record source.
type SourceConfig struct {
	Kind  string      `yaml:"kind"` // evtx|redis
	EVTX  EVTXConfig  `yaml:"evtx"`
	Redis RedisConfig `yaml:"redis"`
}

// EVTXConfig controls the file-based EVTX/JSONL record source.
type EVTXConfig struct {
	Paths []string `yaml:"paths"`
}

// RedisConfig controls the Redis BLPOP record source.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// OutputConfig controls the Detection sink.
type OutputConfig struct {
	Mode string           `yaml:"mode"` // file
	File FileOutputConfig `yaml:"file"`
}

// FileOutputConfig config for local JSONL output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills in defaults for fields left unset in the YAML file,
// mirroring cmd/threatgraph's applyDefaults pattern.
func ApplyDefaults(cfg *Config) {
	if cfg.Chainsaw.Rules.Mapping == nil {
		cfg.Chainsaw.Rules.Mapping = []string{"mappings/default.yml"}
	}

	if cfg.Chainsaw.Hunt.Workers <= 0 {
		cfg.Chainsaw.Hunt.Workers = 8
	}

	if cfg.Chainsaw.Source.Kind == "" {
		cfg.Chainsaw.Source.Kind = "evtx"
	}
	if cfg.Chainsaw.Source.Redis.Addr == "" {
		cfg.Chainsaw.Source.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Chainsaw.Source.Redis.Key == "" {
		cfg.Chainsaw.Source.Redis.Key = "chainsaw_events"
	}
	if cfg.Chainsaw.Source.Redis.BlockTimeout == 0 {
		cfg.Chainsaw.Source.Redis.BlockTimeout = 5 * time.Second
	}

	if cfg.Chainsaw.Output.Mode == "" {
		cfg.Chainsaw.Output.Mode = "file"
	}
	if cfg.Chainsaw.Output.File.Path == "" {
		cfg.Chainsaw.Output.File.Path = "output/detections.jsonl"
	}

	if cfg.Chainsaw.Logging.Level == "" {
		cfg.Chainsaw.Logging.Level = "info"
	}
}

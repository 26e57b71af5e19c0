package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the search service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Entity    EntityConfig    `mapstructure:"entity"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains the LLM provider configuration
type LLMConfig struct {
	Type            string        `mapstructure:"type"` // openai, anthropic, gemini
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// SearchConfig contains web search provider settings
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // tavily, brave, serper
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// EntityConfig contains entity extraction settings
type EntityConfig struct {
	SpacyURL             string        `mapstructure:"spacy_url"`
	ProbeTimeout         time.Duration `mapstructure:"probe_timeout"`
	AnalyzeTimeout       time.Duration `mapstructure:"analyze_timeout"`
	FailureCacheInterval time.Duration `mapstructure:"failure_cache_interval"`
	MinTextLength        int           `mapstructure:"min_text_length"`
}

// EngineConfig contains plan execution settings
type EngineConfig struct {
	MaxResults           int `mapstructure:"max_results"`
	ShortAnswerThreshold int `mapstructure:"short_answer_threshold"`
	ApprovalThreshold    int `mapstructure:"approval_threshold"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a Postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func (e EntityConfig) Validate() error {
	if e.MinTextLength < 0 {
		return fmt.Errorf("entity.min_text_length cannot be negative")
	}
	return nil
}

func (e EngineConfig) Validate() error {
	if e.MaxResults <= 0 {
		return fmt.Errorf("engine.max_results must be > 0")
	}
	if e.ShortAnswerThreshold < 0 {
		return fmt.Errorf("engine.short_answer_threshold cannot be negative")
	}
	return nil
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", time.Minute)
	viper.SetDefault("server.address", ":3001")
	viper.SetDefault("llm.type", "openai")
	viper.SetDefault("llm.completion_model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", 30*time.Second)
	viper.SetDefault("search.provider", "tavily")
	viper.SetDefault("search.base_url", "https://api.tavily.com")
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.timeout", 20*time.Second)
	viper.SetDefault("search.cache_ttl", 15*time.Minute)
	viper.SetDefault("entity.spacy_url", "http://127.0.0.1:5001")
	viper.SetDefault("entity.probe_timeout", 2*time.Second)
	viper.SetDefault("entity.analyze_timeout", 5*time.Second)
	viper.SetDefault("entity.failure_cache_interval", 10*time.Minute)
	viper.SetDefault("entity.min_text_length", 20)
	viper.SetDefault("engine.max_results", 5)
	viper.SetDefault("engine.short_answer_threshold", 100)
	viper.SetDefault("engine.approval_threshold", 2)
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("BUBBLE")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (BUBBLE_*)

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Entity.Validate(); err != nil {
		panic(err)
	}
	if err := config.Engine.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}

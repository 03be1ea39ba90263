// Package config loads mailagent settings from a yaml file, .env and MAILAGENT_* variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "MAILAGENT"

type Config struct {
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Vector     VectorConfig     `mapstructure:"vector"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Summary    SummaryConfig    `mapstructure:"summary"`
	Response   ResponseConfig   `mapstructure:"response"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Router     RouterConfig     `mapstructure:"router"`
	Timeouts   TimeoutConfig    `mapstructure:"timeouts"`
	Mail       MailConfig       `mapstructure:"mail"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	VisionModel string `mapstructure:"vision_model"`
}

type EmbeddingConfig struct {
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type VectorConfig struct {
	Backend        string         `mapstructure:"backend"`
	SQLitePath     string         `mapstructure:"sqlite_path"`
	AtSentinel     string         `mapstructure:"at_sentinel"`
	PeriodSentinel string         `mapstructure:"period_sentinel"`
	Weaviate       WeaviateConfig `mapstructure:"weaviate"`
}

type WeaviateConfig struct {
	Host   string `mapstructure:"host"`
	Scheme string `mapstructure:"scheme"`
	APIKey string `mapstructure:"api_key"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	LocalRoot  string `mapstructure:"local_root"`
	S3Region   string `mapstructure:"s3_region"`
	ScratchDir string `mapstructure:"scratch_dir"`
}

type SummaryConfig struct {
	Dir              string `mapstructure:"dir"`
	MaxTokens        int    `mapstructure:"max_tokens"`
	ReservedTokens   int    `mapstructure:"reserved_tokens"`
	AttachmentWorker int    `mapstructure:"attachment_workers"`
}

type ResponseConfig struct {
	Denylist    []string `mapstructure:"denylist"`
	MinLength   int      `mapstructure:"min_length"`
	Temperature float32  `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
}

type CheckpointConfig struct {
	Backend      string `mapstructure:"backend"`
	Path         string `mapstructure:"path"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

type RouterConfig struct {
	LocalFallback bool `mapstructure:"local_fallback"`
}

type TimeoutConfig struct {
	Model  time.Duration `mapstructure:"model"`
	Search time.Duration `mapstructure:"search"`
	Fetch  time.Duration `mapstructure:"fetch"`
}

type MailConfig struct {
	TokenFile         string `mapstructure:"token_file"`
	OAuthClientID     string `mapstructure:"oauth_client_id"`
	OAuthClientSecret string `mapstructure:"oauth_client_secret"`
	DefaultSenderName string `mapstructure:"default_sender_name"`
}

type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	Addr      string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.vision_model", "gpt-4o")
	v.SetDefault("embedding.model", "text-embedding-3-large")
	v.SetDefault("embedding.dimensions", 3072)
	v.SetDefault("database.path", "mail.db")
	v.SetDefault("vector.backend", "sqlite")
	v.SetDefault("vector.sqlite_path", "vectors.db")
	v.SetDefault("vector.at_sentinel", "__AT")
	v.SetDefault("vector.period_sentinel", "__PERIOD")
	v.SetDefault("vector.weaviate.host", "localhost:8080")
	v.SetDefault("vector.weaviate.scheme", "http")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_root", "attachments")
	v.SetDefault("storage.scratch_dir", os.TempDir())
	v.SetDefault("summary.dir", "summaries")
	v.SetDefault("summary.max_tokens", 100000)
	v.SetDefault("summary.reserved_tokens", 5000)
	v.SetDefault("summary.attachment_workers", 4)
	v.SetDefault("response.denylist", []string{"password", "ssn", "social security number", "credit card number"})
	v.SetDefault("response.min_length", 10)
	v.SetDefault("response.temperature", 0.7)
	v.SetDefault("response.max_tokens", 500)
	v.SetDefault("checkpoint.backend", "memory")
	v.SetDefault("checkpoint.path", "checkpoints.db")
	v.SetDefault("checkpoint.history_limit", 50)
	v.SetDefault("router.local_fallback", true)
	v.SetDefault("timeouts.model", 60*time.Second)
	v.SetDefault("timeouts.search", 15*time.Second)
	v.SetDefault("timeouts.fetch", 30*time.Second)
	v.SetDefault("mail.token_file", "token.json")
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.addr", ":8088")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// New returns a viper instance with defaults, env binding and the config search path set.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mailagent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.mailagent")
		}
	}
	return v
}

// Load reads .env (when present), the config file (when present) and the environment.
func Load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "read config")
		}
	}
	// OPENAI_API_KEY is honoured for compatibility with the provider SDKs.
	if v.GetString("openai.api_key") == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			v.Set("openai.api_key", key)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &cfg, nil
}

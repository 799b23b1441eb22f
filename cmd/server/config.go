package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"codequest/internal/common/cache"
	"codequest/internal/common/docstore"
	"codequest/internal/common/mq"
	"codequest/internal/common/storage"
	"codequest/internal/gateway/middleware"
	"codequest/internal/judge/language"
	userController "codequest/internal/user/controller"
	"codequest/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	storeDriverMongo  = "mongo"
	storeDriverMemory = "memory"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	// MetricsEnabled exposes /metrics.
	MetricsEnabled bool `yaml:"metricsEnabled"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
}

// KafkaSection enables domain events.
type KafkaSection struct {
	Enabled      bool           `yaml:"enabled"`
	Producer     mq.KafkaConfig `yaml:"producer"`
	ProblemTopic string         `yaml:"problemTopic"`
	JudgedTopic  string         `yaml:"judgedTopic"`
}

// MinIOSection enables the submission source archive.
type MinIOSection struct {
	Enabled bool                `yaml:"enabled"`
	Client  storage.MinIOConfig `yaml:"client"`
}

// AuthConfig holds token and cookie settings.
type AuthConfig struct {
	JWTSecret      string                      `yaml:"jwtSecret"`
	JWTIssuer      string                      `yaml:"jwtIssuer"`
	TokenTTL       time.Duration               `yaml:"tokenTTL"`
	BcryptCost     int                         `yaml:"bcryptCost"`
	Cookie         userController.CookieConfig `yaml:"cookie"`
	RevokedLocal   int                         `yaml:"revokedLocalSize"`
	RevokedTTL     time.Duration               `yaml:"revokedLocalTTL"`
	CredentialRate middleware.RateLimitPolicy  `yaml:"credentialRateLimit"`
}

// JudgeConfig holds the execution engine settings.
type JudgeConfig struct {
	BaseURL         string         `yaml:"baseURL"`
	AuthToken       string         `yaml:"authToken"`
	RapidAPIKey     string         `yaml:"rapidAPIKey"`
	RapidAPIHost    string         `yaml:"rapidAPIHost"`
	RequestTimeout  time.Duration  `yaml:"requestTimeout"`
	PollInterval    time.Duration  `yaml:"pollInterval"`
	MaxPollInterval time.Duration  `yaml:"maxPollInterval"`
	MaxPollAttempts int            `yaml:"maxPollAttempts"`
	MaxBatchSize    int            `yaml:"maxBatchSize"`
	Languages       map[string]int `yaml:"languages"`
}

// ProblemConfig holds authoring settings.
type ProblemConfig struct {
	ValidationTimeout     time.Duration `yaml:"validationTimeout"`
	ValidationConcurrency int           `yaml:"validationConcurrency"`
	CacheTTL              time.Duration `yaml:"cacheTTL"`
	CacheEmptyTTL         time.Duration `yaml:"cacheEmptyTTL"`
}

// SubmitConfig holds submission pipeline settings.
type SubmitConfig struct {
	MaxCodeBytes  int           `yaml:"maxCodeBytes"`
	ArchiveBucket string        `yaml:"archiveBucket"`
	ArchivePrefix string        `yaml:"archivePrefix"`
	RateLimit     SubmitRate    `yaml:"rateLimit"`
	Timeouts      SubmitTimeout `yaml:"timeouts"`
}

// SubmitRate limits submissions per user.
type SubmitRate struct {
	UserMax int           `yaml:"userMax"`
	Window  time.Duration `yaml:"window"`
}

// SubmitTimeout bounds calls made by the pipelines.
type SubmitTimeout struct {
	Judge   time.Duration `yaml:"judge"`
	DB      time.Duration `yaml:"db"`
	Cache   time.Duration `yaml:"cache"`
	MQ      time.Duration `yaml:"mq"`
	Storage time.Duration `yaml:"storage"`
}

// AppConfig holds the server configuration.
type AppConfig struct {
	Server ServerConfig  `yaml:"server"`
	Logger logger.Config `yaml:"logger"`

	Store StoreConfig           `yaml:"store"`
	Mongo docstore.MongoConfig  `yaml:"mongo"`
	Redis cache.RedisConfig     `yaml:"redis"`
	Kafka KafkaSection          `yaml:"kafka"`
	MinIO MinIOSection          `yaml:"minio"`
	CORS  middleware.CORSConfig `yaml:"cors"`

	Auth    AuthConfig    `yaml:"auth"`
	Judge   JudgeConfig   `yaml:"judge"`
	Problem ProblemConfig `yaml:"problem"`
	Submit  SubmitConfig  `yaml:"submit"`
}

// loadYAML reads path, expands ${VAR} references and decodes it into out.
func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path, envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file failed: %w", err)
		}
	}

	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth jwtSecret is required")
	}
	if cfg.Judge.BaseURL == "" {
		return nil, fmt.Errorf("judge baseURL is required")
	}
	if len(cfg.Judge.Languages) > 0 {
		languages, err := language.CanonicalTable(cfg.Judge.Languages)
		if err != nil {
			return nil, fmt.Errorf("judge languages: %w", err)
		}
		cfg.Judge.Languages = languages
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case "":
		cfg.Store.Driver = storeDriverMongo
	case storeDriverMongo, storeDriverMemory:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.Driver == storeDriverMongo && cfg.Mongo.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "codequest"
	}

	if cfg.Redis.Addr != "" {
		cfg.Redis.ApplyDefaults()
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Producer.Brokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if cfg.Kafka.ProblemTopic == "" {
			cfg.Kafka.ProblemTopic = "codequest.problem"
		}
		if cfg.Kafka.JudgedTopic == "" {
			cfg.Kafka.JudgedTopic = "codequest.submission"
		}
	}
	if cfg.MinIO.Enabled {
		if cfg.Submit.ArchiveBucket == "" {
			cfg.Submit.ArchiveBucket = cfg.MinIO.Client.Bucket
		}
		if cfg.Submit.ArchiveBucket == "" {
			return nil, fmt.Errorf("submit archiveBucket is required when minio is enabled")
		}
	}

	if cfg.Auth.RevokedLocal <= 0 {
		cfg.Auth.RevokedLocal = 4096
	}
	if cfg.Auth.RevokedTTL <= 0 {
		cfg.Auth.RevokedTTL = time.Minute
	}
	if cfg.Auth.CredentialRate.Window <= 0 {
		cfg.Auth.CredentialRate.Window = time.Minute
	}
	if cfg.Auth.CredentialRate.IPMax == 0 {
		cfg.Auth.CredentialRate.IPMax = 20
	}

	if cfg.Problem.CacheTTL <= 0 {
		cfg.Problem.CacheTTL = 10 * time.Minute
	}
	if cfg.Problem.CacheEmptyTTL <= 0 {
		cfg.Problem.CacheEmptyTTL = 30 * time.Second
	}

	if cfg.Submit.RateLimit.UserMax == 0 {
		cfg.Submit.RateLimit.UserMax = 10
	}
	if cfg.Submit.RateLimit.Window <= 0 {
		cfg.Submit.RateLimit.Window = time.Minute
	}

	cfg.CORS.ApplyDefaults()
	return &cfg, nil
}

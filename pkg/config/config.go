package config

import (
	"log"
	"os"
	"time"

	"VidyaSync/pkg/cache"
	"VidyaSync/pkg/logger"
	"VidyaSync/pkg/storage"
	"VidyaSync/pkg/util"
)

// config/config.go
type Config struct {
	DBDriver  string `env:"DB_DRIVER"`
	DSN       string `env:"DSN"`
	Log       logger.LogConfig
	Cache     cache.Config
	Minio     storage.MinioConfig
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`
	GRPCAddr  string `env:"GRPC_ADDR"` // 健康检查端口，为空时不启动

	// 生成模型
	LLMProvider string `env:"LLM_PROVIDER"` // openai | ollama
	LLMApiKey   string `env:"LLM_API_KEY"`
	LLMBaseURL  string `env:"LLM_BASE_URL"`
	LLMModel    string `env:"LLM_MODEL"`
	TTSProvider string `env:"TTS_PROVIDER"` // google | openai
	TTSModel    string `env:"TTS_MODEL"`

	// 流水线
	ArtifactStore     string        `env:"ARTIFACT_STORE"` // sql | cache
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT"`
	DubConcurrency    int           `env:"DUB_CONCURRENCY"`
	ChainTranscript   bool          `env:"CHAIN_TRANSCRIPT"`
	AudioOffload      bool          `env:"AUDIO_OFFLOAD"`
	PersistRetryCron  string        `env:"PERSIST_RETRY_SCHEDULE"`

	// 播放同步
	PlaybackStrategy string  `env:"PLAYBACK_STRATEGY"` // speedup | pause
	PlaybackMaxRate  float64 `env:"PLAYBACK_MAX_RATE"`

	SearchEnabled bool   `env:"SEARCH_ENABLED"`
	SearchPath    string `env:"SEARCH_PATH"`

	RateLimit            string        `env:"RATE_LIMIT"`
	TranslationCacheSize int           `env:"TRANSLATION_CACHE_SIZE"`
	TranslationCacheTTL  time.Duration `env:"TRANSLATION_CACHE_TTL"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development" // 默认使用开发环境
	}
	err := util.LoadEnv(env)
	if err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = FromEnv()
	return nil
}

// FromEnv 从当前环境变量构造配置并填充默认值
func FromEnv() *Config {
	return &Config{
		DBDriver:  util.GetEnv("DB_DRIVER"),
		DSN:       util.GetEnv("DSN"),
		Addr:      util.GetEnvOr("ADDR", ":8080"),
		Mode:      util.GetEnvOr("MODE", "release"),
		APIPrefix: util.GetEnvOr("API_PREFIX", "/api"),
		GRPCAddr:  util.GetEnv("GRPC_ADDR"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Cache: cache.Config{
			Type: util.GetEnvOr("CACHE_TYPE", "local"),
			Redis: cache.RedisConfig{
				Addr:         util.GetEnvOr("REDIS_ADDR", "localhost:6379"),
				Password:     util.GetEnv("REDIS_PASSWORD"),
				DB:           int(util.GetIntEnv("REDIS_DB")),
				PoolSize:     intOr(util.GetIntEnv("REDIS_POOL_SIZE"), 10),
				MinIdleConns: intOr(util.GetIntEnv("REDIS_MIN_IDLE_CONNS"), 5),
				DialTimeout:  util.GetDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  util.GetDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: util.GetDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
			Local: cache.LocalConfig{
				MaxSize:           intOr(util.GetIntEnv("LOCAL_CACHE_MAX_SIZE"), 1000),
				DefaultExpiration: util.GetDurationEnv("LOCAL_CACHE_DEFAULT_EXPIRATION", 0),
				CleanupInterval:   util.GetDurationEnv("LOCAL_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
			},
		},
		Minio: storage.MinioConfig{
			Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
			AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
			SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
			Bucket:    util.GetEnvOr("MINIO_BUCKET", "dubbings"),
			UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
			BaseURL:   util.GetEnv("MINIO_PUBLIC_BASE"),
		},
		LLMProvider:          util.GetEnvOr("LLM_PROVIDER", "openai"),
		LLMApiKey:            util.GetEnv("LLM_API_KEY"),
		LLMBaseURL:           util.GetEnv("LLM_BASE_URL"),
		LLMModel:             util.GetEnv("LLM_MODEL"),
		TTSProvider:          util.GetEnvOr("TTS_PROVIDER", "google"),
		TTSModel:             util.GetEnv("TTS_MODEL"),
		ArtifactStore:        util.GetEnvOr("ARTIFACT_STORE", "sql"),
		GenerationTimeout:    util.GetDurationEnv("GENERATION_TIMEOUT", 60*time.Second),
		DubConcurrency:       intOr(util.GetIntEnv("DUB_CONCURRENCY"), 4),
		ChainTranscript:      util.GetEnvOr("CHAIN_TRANSCRIPT", "true") == "true",
		AudioOffload:         util.GetBoolEnv("AUDIO_OFFLOAD"),
		PersistRetryCron:     util.GetEnvOr("PERSIST_RETRY_SCHEDULE", "@every 30s"),
		PlaybackStrategy:     util.GetEnvOr("PLAYBACK_STRATEGY", "speedup"),
		PlaybackMaxRate:      util.GetFloatEnv("PLAYBACK_MAX_RATE", 2.5),
		SearchEnabled:        util.GetBoolEnv("SEARCH_ENABLED"),
		SearchPath:           util.GetEnv("SEARCH_PATH"),
		RateLimit:            util.GetEnvOr("RATE_LIMIT", "30-M"),
		TranslationCacheSize: intOr(util.GetIntEnv("TRANSLATION_CACHE_SIZE"), 512),
		TranslationCacheTTL:  util.GetDurationEnv("TRANSLATION_CACHE_TTL", time.Hour),
	}
}

func intOr(v int64, def int) int {
	if v <= 0 {
		return def
	}
	return int(v)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Auth     AuthConfig     `toml:"auth"`
	HTTP     HTTPConfig     `toml:"http"`
	Database DatabaseConfig `toml:"database"`
	Vector   VectorConfig   `toml:"vector"`
	LLM      LLMConfig      `toml:"llm"`
	RAG      RAGConfig      `toml:"rag"`
	Upload   UploadConfig   `toml:"upload"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
}

type AppConfig struct {
	Name     string `toml:"name"`
	Env      string `toml:"env"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	GinMode  string `toml:"gin_mode"`
	LogLevel string `toml:"log_level"`
}

type AuthConfig struct {
	SecretToken string `toml:"secret_token"`
}

type HTTPConfig struct {
	CORSOrigins []string `toml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	URL    string `toml:"url"`
}

type VectorConfig struct {
	URL       string `toml:"url"`
	Table     string `toml:"table"`
	Dimension int    `toml:"dimension"`
	BatchSize int    `toml:"batch_size"`
}

type LLMConfig struct {
	Provider          string `toml:"provider"`
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model"`
	EmbeddingModel    string `toml:"embedding_model"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

type RAGConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
	TopK         int `toml:"top_k"`
}

type UploadConfig struct {
	Dir      string `toml:"dir"`
	MaxBytes int64  `toml:"max_bytes"`
}

type RedisConfig struct {
	Addr                string `toml:"addr"`
	Password            string `toml:"password"`
	DB                  int    `toml:"db"`
	EmbeddingTTLSeconds int    `toml:"embedding_ttl_seconds"`
}

type RabbitMQConfig struct {
	URL             string `toml:"url"`
	IndexPurgeQueue string `toml:"index_purge_queue"`
}

// Load reads .env (if present), the TOML file named by CONFIG_FILE and then the
// environment, in increasing order of precedence. It does not validate.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env failed: %w", err)
		}
	}

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	applyProviderDefaults(cfg)
	cfg.Database.URL = NormalizeDatabaseURL(cfg.Database.URL)
	if cfg.Vector.URL == "" && cfg.Database.Driver == DriverPostgres {
		cfg.Vector.URL = cfg.Database.URL
	}
	cfg.Vector.URL = NormalizeDatabaseURL(cfg.Vector.URL)
	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.SecretToken == "" {
		missing = append(missing, "SECRET_TOKEN")
	}
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Vector.URL == "" {
		missing = append(missing, "VECTOR_DATABASE_URL")
	}
	if c.LLM.APIKey == "" {
		if c.LLM.Provider == ProviderGemini {
			missing = append(missing, "GEMINI_API_KEY")
		} else {
			missing = append(missing, "OPENAI_API_KEY")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.Vector.Dimension <= 0 {
		return errors.New("vector dimension must be positive")
	}
	if c.RAG.ChunkSize <= 0 || c.RAG.ChunkOverlap < 0 {
		return errors.New("chunk size must be positive and overlap non-negative")
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// NormalizeDatabaseURL strips a SQLAlchemy driver suffix such as
// "postgresql+asyncpg://" so the URL is usable by pgx and gorm.
func NormalizeDatabaseURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	if base, _, found := strings.Cut(scheme, "+"); found {
		return base + "://" + rest
	}
	return raw
}

const (
	defaultOpenAIModel          = "gpt-3.5-turbo"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
	defaultOpenAIDimension      = 1536
)

// applyProviderDefaults swaps the OpenAI model defaults for Gemini ones when
// Gemini is selected and the values were left untouched.
func applyProviderDefaults(cfg *Config) {
	if cfg.LLM.Provider != ProviderGemini {
		return
	}
	if cfg.LLM.Model == defaultOpenAIModel {
		cfg.LLM.Model = "gemini-2.0-flash"
	}
	if cfg.LLM.EmbeddingModel == defaultOpenAIEmbeddingModel {
		cfg.LLM.EmbeddingModel = "text-embedding-004"
	}
	if cfg.Vector.Dimension == defaultOpenAIDimension {
		cfg.Vector.Dimension = 768
	}
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "docqa",
			Env:      "dev",
			Host:     "127.0.0.1",
			Port:     8000,
			GinMode:  "debug",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver: DriverPostgres,
		},
		Vector: VectorConfig{
			Table:     "langchain_documents",
			Dimension: defaultOpenAIDimension,
			BatchSize: 10,
		},
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			BaseURL:        "https://api.openai.com/v1",
			Model:          defaultOpenAIModel,
			EmbeddingModel: defaultOpenAIEmbeddingModel,
		},
		RAG: RAGConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         4,
		},
		Upload: UploadConfig{
			Dir:      "./uploads",
			MaxBytes: 10 << 20,
		},
		Redis: RedisConfig{
			EmbeddingTTLSeconds: 3600,
		},
		RabbitMQ: RabbitMQConfig{
			IndexPurgeQueue: "docqa.index.purge",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.Auth.SecretToken = getEnv("SECRET_TOKEN", cfg.Auth.SecretToken)
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		cfg.HTTP.CORSOrigins = splitList(origins)
	}

	cfg.Database.Driver = getEnv("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Vector.URL = getEnv("VECTOR_DATABASE_URL", cfg.Vector.URL)
	cfg.Vector.Table = getEnv("VECTOR_TABLE", cfg.Vector.Table)
	cfg.Vector.Dimension = getEnvAsInt("VECTOR_DIMENSION", cfg.Vector.Dimension)
	cfg.Vector.BatchSize = getEnvAsInt("VECTOR_BATCH_SIZE", cfg.Vector.BatchSize)

	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	if cfg.LLM.Provider == ProviderGemini {
		cfg.LLM.APIKey = getEnv("GEMINI_API_KEY", cfg.LLM.APIKey)
	} else {
		cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
	}
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.EmbeddingModel = getEnv("LLM_EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)
	cfg.LLM.RequestsPerMinute = getEnvAsInt("LLM_REQUESTS_PER_MINUTE", cfg.LLM.RequestsPerMinute)

	cfg.RAG.ChunkSize = getEnvAsInt("RAG_CHUNK_SIZE", cfg.RAG.ChunkSize)
	cfg.RAG.ChunkOverlap = getEnvAsInt("RAG_CHUNK_OVERLAP", cfg.RAG.ChunkOverlap)
	cfg.RAG.TopK = getEnvAsInt("RAG_TOP_K", cfg.RAG.TopK)

	cfg.Upload.Dir = getEnv("UPLOAD_DIR", cfg.Upload.Dir)
	cfg.Upload.MaxBytes = int64(getEnvAsInt("UPLOAD_MAX_BYTES", int(cfg.Upload.MaxBytes)))

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.EmbeddingTTLSeconds = getEnvAsInt("REDIS_EMBEDDING_TTL_SECONDS", cfg.Redis.EmbeddingTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.IndexPurgeQueue = getEnv("RABBITMQ_INDEX_PURGE_QUEUE", cfg.RabbitMQ.IndexPurgeQueue)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

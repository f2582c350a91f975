package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB        DBConfig
	Server    ServerConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	LLM       LLMConfig
	Queue     QueueConfig
	Upload    UploadConfig
	Auth      AuthConfig
	CacheTTLs CacheTTLConfig
	ParseLog  ParseLogConfig
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DBConfig struct {
	Driver   string // "oracle" or "sqlite3"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Path     string // sqlite3 database file
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggerConfig struct {
	Env   string
	Level string
}

// LLMConfig selects the text-completion provider. Provider "none" disables AI extraction.
type LLMConfig struct {
	Provider  string
	ServerURL string
	Model     string
	APIKey    string
	Timeout   time.Duration
}

type QueueConfig struct {
	Topic             string
	MaxAttempts       int
	KeepCompleted     int
	KeepFailed        int
	VisibilityTimeout time.Duration
	JobTimeout        time.Duration
	PollTimeout       time.Duration
	Concurrency       int
	ReapInterval      time.Duration
}

type UploadConfig struct {
	Dir               string
	MaxFileSize       int64
	AllowedExtensions []string
}

type AuthConfig struct {
	JWTSecretKey string
}

type CacheTTLConfig struct {
	QuestionList time.Duration
}

// ParseLogConfig selects where auxiliary parse logs go: "sql" or "mongo".
type ParseLogConfig struct {
	Sink          string
	MongoURI      string
	MongoDatabase string
}

const (
	DriverOracle  = "oracle"
	DriverSQLite3 = "sqlite3"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", DriverOracle)
	v.SetDefault("db.path", "quiz.db")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 20)
	v.SetDefault("server.write_timeout", 20)
	v.SetDefault("logger.env", "development")
	v.SetDefault("logger.level", "info")
	v.SetDefault("llm.provider", ProviderNone)
	v.SetDefault("llm.model", "qwen3:0.6b")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("queue.topic", "quiz-parse")
	v.SetDefault("queue.max_attempts", 2)
	v.SetDefault("queue.keep_completed", 50)
	v.SetDefault("queue.keep_failed", 100)
	v.SetDefault("queue.visibility_timeout", "5m")
	v.SetDefault("queue.job_timeout", "4m")
	v.SetDefault("queue.poll_timeout", "5s")
	v.SetDefault("queue.concurrency", 2)
	v.SetDefault("queue.reap_interval", "30s")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_file_size", 10*1024*1024)
	v.SetDefault("upload.allowed_extensions", []string{".txt", ".md"})
	v.SetDefault("cache_ttls.question_list", "10m")
	v.SetDefault("parse_log.sink", "sql")
	v.SetDefault("parse_log.mongo_database", "quiz_ingest")
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Add config paths based on environment
	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	config := &Config{
		DB: DBConfig{
			Driver:   v.GetString("db.driver"),
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			Path:     v.GetString("db.path"),
		},
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: v.GetDuration("server.write_timeout") * time.Second,
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Logger: LoggerConfig{
			Env:   v.GetString("logger.env"),
			Level: v.GetString("logger.level"),
		},
		LLM: LLMConfig{
			Provider:  strings.ToLower(v.GetString("llm.provider")),
			ServerURL: v.GetString("llm.server_url"),
			Model:     v.GetString("llm.model"),
			APIKey:    v.GetString("llm.api_key"),
			Timeout:   v.GetDuration("llm.timeout"),
		},
		Queue: QueueConfig{
			Topic:             v.GetString("queue.topic"),
			MaxAttempts:       v.GetInt("queue.max_attempts"),
			KeepCompleted:     v.GetInt("queue.keep_completed"),
			KeepFailed:        v.GetInt("queue.keep_failed"),
			VisibilityTimeout: v.GetDuration("queue.visibility_timeout"),
			JobTimeout:        v.GetDuration("queue.job_timeout"),
			PollTimeout:       v.GetDuration("queue.poll_timeout"),
			Concurrency:       v.GetInt("queue.concurrency"),
			ReapInterval:      v.GetDuration("queue.reap_interval"),
		},
		Upload: UploadConfig{
			Dir:               v.GetString("upload.dir"),
			MaxFileSize:       v.GetInt64("upload.max_file_size"),
			AllowedExtensions: v.GetStringSlice("upload.allowed_extensions"),
		},
		Auth: AuthConfig{
			JWTSecretKey: v.GetString("auth.jwt.secret_key"),
		},
		CacheTTLs: CacheTTLConfig{
			QuestionList: v.GetDuration("cache_ttls.question_list"),
		},
		ParseLog: ParseLogConfig{
			Sink:          strings.ToLower(v.GetString("parse_log.sink")),
			MongoURI:      v.GetString("parse_log.mongo_uri"),
			MongoDatabase: v.GetString("parse_log.mongo_database"),
		},
	}

	// Override with environment variables if set
	if host := os.Getenv("DB_HOST"); host != "" {
		config.DB.Host = host
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.DB.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		config.DB.DBName = dbname
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if llmServer := os.Getenv("LLM_SERVER"); llmServer != "" {
		config.LLM.ServerURL = llmServer
	}
	if openAIKey := os.Getenv("OPENAI_API_KEY"); openAIKey != "" {
		config.LLM.APIKey = openAIKey
	}
	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.Auth.JWTSecretKey = jwtSecret
	}
	if mongoURI := os.Getenv("MONGO_URI"); mongoURI != "" {
		config.ParseLog.MongoURI = mongoURI
	}

	return config
}

// GetDSN returns the data source name for the configured driver.
func (c *Config) GetDSN() string {
	if c.DB.Driver == DriverSQLite3 {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.DB.Path)
	}
	// Oracle DSN format: user/password@host:port/service
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
	)
}

// HandlerTimeout returns the deadline for one job run. It stays below the visibility
// timeout so a run gives up before the reaper can redeliver it.
func (q QueueConfig) HandlerTimeout() time.Duration {
	if q.VisibilityTimeout <= 0 {
		return q.JobTimeout
	}
	if q.JobTimeout <= 0 || q.JobTimeout >= q.VisibilityTimeout {
		return q.VisibilityTimeout * 4 / 5
	}
	return q.JobTimeout
}

// AIEnabled reports whether a completion provider is configured.
func (c *Config) AIEnabled() bool {
	switch c.LLM.Provider {
	case ProviderOllama:
		return c.LLM.ServerURL != ""
	case ProviderOpenAI:
		return c.LLM.APIKey != ""
	default:
		return false
	}
}

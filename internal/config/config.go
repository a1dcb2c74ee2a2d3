package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Storage    StorageConfig
	Log        LogConfig
	Extraction ExtractionConfig
	Pipeline   PipelineConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Email      EmailConfig
}

// EmailConfig holds confirmation notice delivery settings.
type EmailConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	FrontendURL string   `mapstructure:"frontend_url"`
	Operators   []string `mapstructure:"operators"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ExtractionConfig holds settings for the external extraction service.
type ExtractionConfig struct {
	Provider          string  `mapstructure:"provider"`
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSecs       int     `mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	CardType          string  `mapstructure:"card_type"`
}

// Timeout returns the per-call timeout, defaulting to 120s.
func (e *ExtractionConfig) Timeout() time.Duration {
	if e.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(e.TimeoutSecs) * time.Second
}

// PipelineConfig holds the divergences between onboarding workflows: which
// categories go through detail and rate extraction and what confirmation
// requires.
type PipelineConfig struct {
	DetailCategories               []string `mapstructure:"detail_categories"`
	RateCategories                 []string `mapstructure:"rate_categories"`
	RequiredFields                 []string `mapstructure:"required_fields"`
	RateRequiredProviderCategories []string `mapstructure:"rate_required_provider_categories"`
	MaxFileSizeMB                  int64    `mapstructure:"max_file_size_mb"`
}

// RedisConfig holds draft snapshot store settings. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	DraftTTL time.Duration `mapstructure:"draft_ttl"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
	// MigrationsPath is a directory or a golang-migrate source URL.
	MigrationsPath string `mapstructure:"migrations_path"`
	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// MigrationsURL returns the migration source as a URL; plain paths become
// file:// sources.
func (d *DBConfig) MigrationsURL() string {
	if strings.Contains(d.MigrationsPath, "://") {
		return d.MigrationsPath
	}
	return "file://" + d.MigrationsPath
}

// StorageConfig holds document archive settings. Provider is "s3" or "minio".
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the RATEINTAKE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RATEINTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "rateintake")
	v.SetDefault("db.password", "rateintake_secret")
	v.SetDefault("db.name", "rateintake_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.migrations_path", "db/migrations")
	v.SetDefault("db.auto_migrate", false)

	// Storage defaults
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "rateintake-documents")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", true)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "text")

	// Extraction defaults
	v.SetDefault("extraction.provider", "http")
	v.SetDefault("extraction.base_url", "http://localhost:9000")
	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.timeout_secs", 120)
	v.SetDefault("extraction.requests_per_second", 5)
	v.SetDefault("extraction.burst", 5)
	v.SetDefault("extraction.card_type", "standard")

	// Pipeline defaults
	v.SetDefault("pipeline.detail_categories", "master_agreement,amendment")
	v.SetDefault("pipeline.rate_categories", "master_agreement,amendment,rate_card")
	v.SetDefault("pipeline.required_fields", "name,provider_category,msa_reference,effective_date")
	v.SetDefault("pipeline.rate_required_provider_categories", "staffing,professional_services,consulting")
	v.SetDefault("pipeline.max_file_size_mb", 25)

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.draft_ttl", "72h")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@rateintake.local")
	v.SetDefault("email.from_name", "Rate Intake")
	v.SetDefault("email.frontend_url", "http://localhost:3000")
	v.SetDefault("email.operators", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                                "RATEINTAKE_SERVER_PORT",
		"server.read_timeout":                        "RATEINTAKE_SERVER_READ_TIMEOUT",
		"server.write_timeout":                       "RATEINTAKE_SERVER_WRITE_TIMEOUT",
		"server.shutdown_timeout":                    "RATEINTAKE_SERVER_SHUTDOWN_TIMEOUT",
		"server.environment":                         "RATEINTAKE_SERVER_ENVIRONMENT",
		"db.host":                                    "RATEINTAKE_DB_HOST",
		"db.port":                                    "RATEINTAKE_DB_PORT",
		"db.user":                                    "RATEINTAKE_DB_USER",
		"db.password":                                "RATEINTAKE_DB_PASSWORD",
		"db.name":                                    "RATEINTAKE_DB_NAME",
		"db.sslmode":                                 "RATEINTAKE_DB_SSLMODE",
		"db.max_open":                                "RATEINTAKE_DB_MAX_OPEN",
		"db.max_idle":                                "RATEINTAKE_DB_MAX_IDLE",
		"db.migrations_path":                         "RATEINTAKE_DB_MIGRATIONS_PATH",
		"db.auto_migrate":                            "RATEINTAKE_DB_AUTO_MIGRATE",
		"storage.provider":                           "RATEINTAKE_STORAGE_PROVIDER",
		"storage.region":                             "RATEINTAKE_STORAGE_REGION",
		"storage.bucket":                             "RATEINTAKE_STORAGE_BUCKET",
		"storage.endpoint":                           "RATEINTAKE_STORAGE_ENDPOINT",
		"storage.access_key":                         "RATEINTAKE_STORAGE_ACCESS_KEY",
		"storage.secret_key":                         "RATEINTAKE_STORAGE_SECRET_KEY",
		"storage.use_ssl":                            "RATEINTAKE_STORAGE_USE_SSL",
		"log.level":                                  "RATEINTAKE_LOG_LEVEL",
		"log.format":                                 "RATEINTAKE_LOG_FORMAT",
		"extraction.provider":                        "RATEINTAKE_EXTRACTION_PROVIDER",
		"extraction.base_url":                        "RATEINTAKE_EXTRACTION_BASE_URL",
		"extraction.api_key":                         "RATEINTAKE_EXTRACTION_API_KEY",
		"extraction.timeout_secs":                    "RATEINTAKE_EXTRACTION_TIMEOUT_SECS",
		"extraction.requests_per_second":             "RATEINTAKE_EXTRACTION_REQUESTS_PER_SECOND",
		"extraction.burst":                           "RATEINTAKE_EXTRACTION_BURST",
		"extraction.card_type":                       "RATEINTAKE_EXTRACTION_CARD_TYPE",
		"pipeline.detail_categories":                 "RATEINTAKE_PIPELINE_DETAIL_CATEGORIES",
		"pipeline.rate_categories":                   "RATEINTAKE_PIPELINE_RATE_CATEGORIES",
		"pipeline.required_fields":                   "RATEINTAKE_PIPELINE_REQUIRED_FIELDS",
		"pipeline.rate_required_provider_categories": "RATEINTAKE_PIPELINE_RATE_REQUIRED_PROVIDER_CATEGORIES",
		"pipeline.max_file_size_mb":                  "RATEINTAKE_PIPELINE_MAX_FILE_SIZE_MB",
		"redis.addr":                                 "RATEINTAKE_REDIS_ADDR",
		"redis.password":                             "RATEINTAKE_REDIS_PASSWORD",
		"redis.db":                                   "RATEINTAKE_REDIS_DB",
		"redis.draft_ttl":                            "RATEINTAKE_REDIS_DRAFT_TTL",
		"cors.allowed_origins":                       "RATEINTAKE_CORS_ALLOWED_ORIGINS",
		"email.provider":                             "RATEINTAKE_EMAIL_PROVIDER",
		"email.region":                               "RATEINTAKE_EMAIL_REGION",
		"email.from_address":                         "RATEINTAKE_EMAIL_FROM_ADDRESS",
		"email.from_name":                            "RATEINTAKE_EMAIL_FROM_NAME",
		"email.frontend_url":                         "RATEINTAKE_EMAIL_FRONTEND_URL",
		"email.operators":                            "RATEINTAKE_EMAIL_OPERATORS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if RATEINTAKE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("RATEINTAKE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:            serverPort,
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		Environment:     v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),

		MigrationsPath: v.GetString("db.migrations_path"),
		AutoMigrate:    v.GetBool("db.auto_migrate"),
	}
	cfg.Storage = StorageConfig{
		Provider:  v.GetString("storage.provider"),
		Region:    v.GetString("storage.region"),
		Bucket:    v.GetString("storage.bucket"),
		Endpoint:  v.GetString("storage.endpoint"),
		AccessKey: v.GetString("storage.access_key"),
		SecretKey: v.GetString("storage.secret_key"),
		UseSSL:    v.GetBool("storage.use_ssl"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Extraction = ExtractionConfig{
		Provider:          v.GetString("extraction.provider"),
		BaseURL:           strings.TrimRight(v.GetString("extraction.base_url"), "/"),
		APIKey:            v.GetString("extraction.api_key"),
		TimeoutSecs:       v.GetInt("extraction.timeout_secs"),
		RequestsPerSecond: v.GetFloat64("extraction.requests_per_second"),
		Burst:             v.GetInt("extraction.burst"),
		CardType:          v.GetString("extraction.card_type"),
	}
	cfg.Pipeline = PipelineConfig{
		DetailCategories:               SplitList(v.GetString("pipeline.detail_categories")),
		RateCategories:                 SplitList(v.GetString("pipeline.rate_categories")),
		RequiredFields:                 SplitList(v.GetString("pipeline.required_fields")),
		RateRequiredProviderCategories: SplitList(v.GetString("pipeline.rate_required_provider_categories")),
		MaxFileSizeMB:                  v.GetInt64("pipeline.max_file_size_mb"),
	}
	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
		DraftTTL: v.GetDuration("redis.draft_ttl"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: SplitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		FrontendURL: v.GetString("email.frontend_url"),
		Operators:   SplitList(v.GetString("email.operators")),
	}

	return cfg, nil
}

// SplitList parses a comma-separated string, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

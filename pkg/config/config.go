package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable read by Load.
	EnvPrefix = "ecosheet"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	Sheets   SheetsConfig
	Catalog  CatalogConfig
	AuditDB  AuditDBConfig
	Pipeline PipelineConfig
	Mapper   MapperConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ECOSHEET_APP_ENV" required:"true"`
	Port         string `envconfig:"ECOSHEET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ECOSHEET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ECOSHEET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"ECOSHEET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ECOSHEET_REDIS_ADDR"`
	Password     string        `envconfig:"ECOSHEET_REDIS_PASSWORD"`
	DB           int           `envconfig:"ECOSHEET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ECOSHEET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ECOSHEET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ECOSHEET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ECOSHEET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ECOSHEET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SheetsConfig bounds every remote table-store call. Reads and clears are
// idempotent and retried exactly once; writes are never retried.
type SheetsConfig struct {
	BaseURL      string        `envconfig:"ECOSHEET_SHEETS_BASE_URL"`
	CallTimeout  time.Duration `envconfig:"ECOSHEET_SHEETS_CALL_TIMEOUT" default:"15s"`
	RetryBackoff time.Duration `envconfig:"ECOSHEET_SHEETS_RETRY_BACKOFF" default:"500ms"`
}

type CatalogConfig struct {
	EmissionPath string `envconfig:"ECOSHEET_CATALOG_EMISSION_PATH" default:"data/emission_catalog.csv"`
	BaselinePath string `envconfig:"ECOSHEET_CATALOG_BASELINE_PATH" default:"data/category_baselines.csv"`
}

// AuditDBConfig points at the relational fallback used for change-history
// rows when the request carries no Google access token.
type AuditDBConfig struct {
	Driver          string        `envconfig:"ECOSHEET_AUDIT_DB_DRIVER" default:"sqlite"`
	DSN             string        `envconfig:"ECOSHEET_AUDIT_DB_DSN" default:"file:ecosheet_audit.db?cache=shared"`
	AutoMigrate     bool          `envconfig:"ECOSHEET_AUDIT_DB_AUTO_MIGRATE" default:"true"`
	MaxOpenConns    int           `envconfig:"ECOSHEET_AUDIT_DB_MAX_OPEN_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ECOSHEET_AUDIT_DB_CONN_MAX_LIFETIME" default:"1h"`
}

type PipelineConfig struct {
	SalesSheetName     string        `envconfig:"ECOSHEET_PIPELINE_SALES_SHEET" default:"제품_판매_기록"`
	CustomerSheetName  string        `envconfig:"ECOSHEET_PIPELINE_CUSTOMER_SHEET" default:"고객_정보"`
	SummarySheetName   string        `envconfig:"ECOSHEET_PIPELINE_SUMMARY_SHEET" default:"탄소_감축"`
	HistorySheetName   string        `envconfig:"ECOSHEET_PIPELINE_HISTORY_SHEET" default:"ChangeHistory"`
	LockTTL            time.Duration `envconfig:"ECOSHEET_PIPELINE_LOCK_TTL" default:"2m"`
	DefaultOrderStatus string        `envconfig:"ECOSHEET_PIPELINE_DEFAULT_ORDER_STATUS" default:"거래 완료"`
	CompletionLagDays  int           `envconfig:"ECOSHEET_PIPELINE_COMPLETION_LAG_DAYS" default:"3"`
}

// MapperConfig configures the chat-completion backend that produces mapping
// text. With no API key the rule-based provider is used instead.
type MapperConfig struct {
	APIKey  string        `envconfig:"ECOSHEET_MAPPER_API_KEY"`
	BaseURL string        `envconfig:"ECOSHEET_MAPPER_BASE_URL" default:"https://api.openai.com/v1"`
	Model   string        `envconfig:"ECOSHEET_MAPPER_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"ECOSHEET_MAPPER_TIMEOUT" default:"60s"`
}

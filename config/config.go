package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Provider          ProviderConfig
	Purchases         PurchasesConfig
	Promo             PromoConfig
	Finance           FinanceConfig
	Withdraw          WithdrawConfig
	Redis             RedisConfig
	Kafka             KafkaConfig
	Webhooks          WebhooksConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type ProviderConfig struct {
	WebhookSecret      string
	SignatureTolerance time.Duration
	Currency           string
}

type PurchasesConfig struct {
	IntentTimeout time.Duration
	StoreTimeout  time.Duration
	JobBatchSize  int32
}

type PromoConfig struct {
	MinCodeLength int
	MaxUses       int32
	MaxPercent    int32
}

type FinanceConfig struct {
	TopDefaultDays  int
	TopDefaultLimit int32
}

type WithdrawConfig struct {
	MinAmount int64
	MaxAmount int64
}

// RedisConfig is optional. With an empty Addr sweeps run without a distributed lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// KafkaConfig is optional. With no brokers protocol alerts are only logged.
type KafkaConfig struct {
	Brokers     []string
	AlertsTopic string
	ClientID    string
}

type WebhooksConfig struct {
	RateLimit float64
	Burst     int
}

type JobsConfig struct {
	ExpirePurchasesInterval  time.Duration
	ExpirePromoCodesInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "lesson-payments-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
			MigrationsPath:  getEnv("MYSQL_MIGRATIONS_PATH", "file://db/migrations"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Provider: ProviderConfig{
			WebhookSecret:      getEnv("PROVIDER_WEBHOOK_SECRET", ""),
			SignatureTolerance: getSecondsEnv("PROVIDER_SIGNATURE_TOLERANCE_SECONDS", 300*time.Second),
			Currency:           strings.ToUpper(getEnv("PROVIDER_CURRENCY", "XTR")),
		},
		Purchases: PurchasesConfig{
			IntentTimeout: getMinutesEnv("PURCHASES_INTENT_TIMEOUT_MINUTES", 30*time.Minute),
			StoreTimeout:  getSecondsEnv("PURCHASES_STORE_TIMEOUT_SECONDS", 5*time.Second),
			JobBatchSize:  int32(getIntEnv("PURCHASES_JOB_BATCH_SIZE", 100)),
		},
		Promo: PromoConfig{
			MinCodeLength: getIntEnv("PROMO_MIN_CODE_LENGTH", 3),
			MaxUses:       int32(getIntEnv("PROMO_MAX_USES", 1000)),
			MaxPercent:    int32(getIntEnv("PROMO_MAX_PERCENT", 100)),
		},
		Finance: FinanceConfig{
			TopDefaultDays:  getIntEnv("FINANCE_TOP_DEFAULT_DAYS", 30),
			TopDefaultLimit: int32(getIntEnv("FINANCE_TOP_DEFAULT_LIMIT", 10)),
		},
		Withdraw: WithdrawConfig{
			MinAmount: int64(getIntEnv("WITHDRAW_MIN_AMOUNT", 100)),
			MaxAmount: int64(getIntEnv("WITHDRAW_MAX_AMOUNT", 50000)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			LockTTL:  getSecondsEnv("REDIS_LOCK_TTL_SECONDS", 60*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     getListEnv("KAFKA_BROKERS"),
			AlertsTopic: getEnv("KAFKA_ALERTS_TOPIC", "lesson-payments.alerts"),
			ClientID:    getEnv("KAFKA_CLIENT_ID", "lesson-payments-service"),
		},
		Webhooks: WebhooksConfig{
			RateLimit: float64(getIntEnv("WEBHOOKS_RATE_LIMIT_PER_SECOND", 50)),
			Burst:     getIntEnv("WEBHOOKS_RATE_LIMIT_BURST", 100),
		},
		Jobs: JobsConfig{
			ExpirePurchasesInterval:  getMinutesEnv("JOBS_EXPIRE_PURCHASES_INTERVAL_MINUTES", time.Minute),
			ExpirePromoCodesInterval: getMinutesEnv("JOBS_EXPIRE_PROMOCODES_INTERVAL_MINUTES", 60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty items.
func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

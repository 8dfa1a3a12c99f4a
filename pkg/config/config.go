package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Pesapal  PesapalConfig
	Mailjet  MailjetConfig
	Kafka    KafkaConfig
	Outbox   OutboxConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	CORSOrigins []string
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MigrateOnBoot bool
}

type JWTConfig struct {
	SecretKey string
	TTL       time.Duration
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type PesapalConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
	NotificationID string
	Currency       string
	WebhookSecret  string
	Timeout        time.Duration
}

type MailjetConfig struct {
	MailjetBaseUrl           string
	MailjetBasicAuthUsername string
	MailjetBasicAuthPassword string
	MailjetSenderEmail       string
	MailjetSenderName        string
}

type KafkaConfig struct {
	Brokers          []string
	OrderEventsTopic string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	maxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "20"))
	if err != nil {
		return nil, errors.New("invalid DB_MAX_OPEN_CONNS")
	}

	outboxBatch, err := strconv.Atoi(getEnv("OUTBOX_BATCH_SIZE", "50"))
	if err != nil {
		return nil, errors.New("invalid OUTBOX_BATCH_SIZE")
	}

	jwtTTL, err := getDuration("JWT_TTL", "168h")
	if err != nil {
		return nil, err
	}

	requestTimeout, err := getDuration("REQUEST_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	pesapalTimeout, err := getDuration("PESAPAL_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	pollInterval, err := getDuration("OUTBOX_POLL_INTERVAL", "2s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "FarmDirect API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			RequestTimeout: requestTimeout,
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", ""),
			Name:          getEnv("DB_NAME", "farmdirect"),
			SSLMode:       getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:  maxOpenConns,
			MigrateOnBoot: getEnv("DB_MIGRATE_ON_BOOT", "true") == "true",
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
			TTL:       jwtTTL,
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Pesapal: PesapalConfig{
			BaseURL:        getEnv("PESAPAL_BASE_URL", "https://pay.pesapal.com/v3/api"),
			ConsumerKey:    getEnv("PESAPAL_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("PESAPAL_CONSUMER_SECRET", ""),
			CallbackURL:    getEnv("PESAPAL_CALLBACK_URL", ""),
			NotificationID: getEnv("PESAPAL_NOTIFICATION_ID", ""),
			Currency:       getEnv("PESAPAL_CURRENCY", "KES"),
			WebhookSecret:  getEnv("PESAPAL_WEBHOOK_SECRET", ""),
			Timeout:        pesapalTimeout,
		},
		Mailjet: MailjetConfig{
			MailjetBaseUrl:           getEnv("MAILJET_BASE_URL", "https://api.mailjet.com"),
			MailjetBasicAuthUsername: getEnv("MAILJET_BASIC_AUTH_USERNAME", ""),
			MailjetBasicAuthPassword: getEnv("MAILJET_BASIC_AUTH_PASSWORD", ""),
			MailjetSenderEmail:       getEnv("MAILJET_SENDER_EMAIL", ""),
			MailjetSenderName:        getEnv("MAILJET_SENDER_NAME", "FarmDirect"),
		},
		Kafka: KafkaConfig{
			Brokers:          splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			OrderEventsTopic: getEnv("KAFKA_ORDER_EVENTS_TOPIC", "farmdirect.order-events"),
		},
		Outbox: OutboxConfig{
			PollInterval: pollInterval,
			BatchSize:    outboxBatch,
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.Pesapal.WebhookSecret == "" {
		return nil, errors.New("missing pesapal webhook secret")
	}

	return cfg, nil
}

// PostgresDSN builds the keyword/value DSN used by gorm.
func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// MigrationURL builds the URL form expected by golang-migrate.
func (d DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getDuration(key, defaultVal string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultVal))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}

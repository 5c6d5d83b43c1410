package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Email         EmailConfig
	SMS           AfricaTalkingConfig
	OIDC          OIDCConfig
	Log           LogConfig
	Notifications NotificationConfig
}

type ServerConfig struct {
	Addr          string
	SessionSecret string
	GinMode       string
}

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	TimeZone string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CartTTL  time.Duration
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	OrderTopic string
}

type AfricaTalkingConfig struct {
	Enabled  bool
	Username string
	APIKey   string
	SMSURL   string
	SenderID string
}

type EmailConfig struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	SenderEmail        string
}

type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AdminEmails  []string
}

type LogConfig struct {
	Level      string
	Format     string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type NotificationConfig struct {
	Interval     time.Duration
	BatchSize    int
	MaxAttempts  int
	ClaimTimeout time.Duration
}

// envKeys maps config keys to the environment variables the service has always used.
var envKeys = map[string]string{
	"server.addr":           "SERVER_ADDR",
	"server.session_secret": "SESSION_SECRET",
	"server.gin_mode":       "GIN_MODE",

	"database.host":      "POSTGRES_HOST",
	"database.user":      "POSTGRES_USER",
	"database.password":  "POSTGRES_PASSWORD",
	"database.name":      "POSTGRES_DB",
	"database.port":      "DB_PORT",
	"database.time_zone": "DB_TIMEZONE",

	"redis.addr":     "REDIS_ADDR",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",
	"redis.cart_ttl": "CART_TTL",

	"kafka.enabled":     "KAFKA_ENABLED",
	"kafka.brokers":     "KAFKA_BROKERS",
	"kafka.order_topic": "KAFKA_ORDER_TOPIC",

	"email.aws_access_key_id":     "AWS_ACCESS_KEY_ID",
	"email.aws_secret_access_key": "AWS_SECRET_ACCESS_KEY",
	"email.aws_region":            "AWS_REGION",
	"email.sender":                "AWS_SENDER_ADDRESS",

	"sms.enabled":   "AT_ENABLED",
	"sms.username":  "AT_USERNAME",
	"sms.api_key":   "AT_API_KEY",
	"sms.url":       "AT_SMS_URL",
	"sms.sender_id": "AT_SENDER_ID",

	"oidc.issuer":        "OIDC_ISSUER",
	"oidc.client_id":     "OIDC_CLIENT_ID",
	"oidc.client_secret": "OIDC_CLIENT_SECRET",
	"oidc.redirect_url":  "OIDC_REDIRECT_URL",
	"oidc.admin_emails":  "ADMIN_EMAILS",

	"log.level":        "LOG_LEVEL",
	"log.format":       "LOG_FORMAT",
	"log.file_path":    "LOG_FILE",
	"log.max_size_mb":  "LOG_MAX_SIZE_MB",
	"log.max_backups":  "LOG_MAX_BACKUPS",
	"log.max_age_days": "LOG_MAX_AGE_DAYS",

	"notifications.interval":      "NOTIFY_INTERVAL",
	"notifications.batch_size":    "NOTIFY_BATCH_SIZE",
	"notifications.max_attempts":  "NOTIFY_MAX_ATTEMPTS",
	"notifications.claim_timeout": "NOTIFY_CLAIM_TIMEOUT",
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.session_secret", "change-me")
	v.SetDefault("server.gin_mode", "release")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "test")
	v.SetDefault("database.password", "test")
	v.SetDefault("database.name", "test")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.time_zone", "Asia/Kolkata")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cart_ttl", "720h")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.order_topic", "dairydelight.orders")

	v.SetDefault("email.aws_region", "us-east-1")

	v.SetDefault("sms.enabled", false)
	v.SetDefault("sms.url", "https://api.sandbox.africastalking.com/version1/messaging") // Sandbox URL
	v.SetDefault("sms.sender_id", "AFRICASTKNG")                                         // Default sandbox sender ID

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("notifications.interval", "5s")
	v.SetDefault("notifications.batch_size", 50)
	v.SetDefault("notifications.max_attempts", 1)
	v.SetDefault("notifications.claim_timeout", "5m")

	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}

	return v
}

// Load reads defaults, the optional config file and the environment, in that order of precedence.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          v.GetString("server.addr"),
			SessionSecret: v.GetString("server.session_secret"),
			GinMode:       v.GetString("server.gin_mode"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			Port:     v.GetString("database.port"),
			TimeZone: v.GetString("database.time_zone"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CartTTL:  v.GetDuration("redis.cart_ttl"),
		},
		Kafka: KafkaConfig{
			Enabled:    v.GetBool("kafka.enabled"),
			Brokers:    splitList(v.GetString("kafka.brokers")),
			OrderTopic: v.GetString("kafka.order_topic"),
		},
		Email: EmailConfig{
			AWSAccessKeyID:     v.GetString("email.aws_access_key_id"),
			AWSSecretAccessKey: v.GetString("email.aws_secret_access_key"),
			AWSRegion:          v.GetString("email.aws_region"),
			SenderEmail:        v.GetString("email.sender"),
		},
		SMS: AfricaTalkingConfig{
			Enabled:  v.GetBool("sms.enabled"),
			Username: v.GetString("sms.username"),
			APIKey:   v.GetString("sms.api_key"),
			SMSURL:   v.GetString("sms.url"),
			SenderID: v.GetString("sms.sender_id"),
		},
		OIDC: OIDCConfig{
			Issuer:       v.GetString("oidc.issuer"),
			ClientID:     v.GetString("oidc.client_id"),
			ClientSecret: v.GetString("oidc.client_secret"),
			RedirectURL:  v.GetString("oidc.redirect_url"),
			AdminEmails:  splitList(v.GetString("oidc.admin_emails")),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			FilePath:   v.GetString("log.file_path"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Notifications: NotificationConfig{
			Interval:     v.GetDuration("notifications.interval"),
			BatchSize:    v.GetInt("notifications.batch_size"),
			MaxAttempts:  v.GetInt("notifications.max_attempts"),
			ClaimTimeout: v.GetDuration("notifications.claim_timeout"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, credentials)
// - default: Values common across all environments (timezone, timeout, etc.)
// -----------------------------------------------------------------------------

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	CORS      CORSConfig
	Log       LogConfig
	JWT       JWTConfig
	Gateway   GatewayConfig
	Booking   BookingConfig
	Notifier  NotifierConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"Africa/Nairobi"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"Africa/Nairobi"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"10800"` // 3*60*60
}

// JWTConfig describes tokens minted by the external identity provider.
// Duration only applies to tokens issued locally by tooling and tests.
type JWTConfig struct {
	Secret   string        `envconfig:"JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"JWT_ISSUER"`
	Leeway   time.Duration `envconfig:"JWT_LEEWAY" default:"30s"`
	Duration string        `envconfig:"JWT_DURATION" default:"24h"`
}

// GatewayConfig holds the Daraja (M-Pesa) credentials and callback wiring.
type GatewayConfig struct {
	BaseURL        string        `envconfig:"DARAJA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey    string        `envconfig:"DARAJA_CONSUMER_KEY" required:"true"`
	ConsumerSecret string        `envconfig:"DARAJA_CONSUMER_SECRET" required:"true"`
	ShortCode      string        `envconfig:"DARAJA_SHORTCODE" required:"true"`
	PassKey        string        `envconfig:"DARAJA_PASSKEY" required:"true"`
	CallbackURL    string        `envconfig:"DARAJA_CALLBACK_URL" required:"true"`
	CallbackToken  string        `envconfig:"DARAJA_CALLBACK_TOKEN"`
	Timeout        time.Duration `envconfig:"DARAJA_TIMEOUT" default:"15s"`
	RatePerSec     float64       `envconfig:"DARAJA_RATE_PER_SEC" default:"5"`
	RateBurst      int           `envconfig:"DARAJA_RATE_BURST" default:"10"`
	TokenRetries   uint64        `envconfig:"DARAJA_TOKEN_RETRIES" default:"3"`
}

type BookingConfig struct {
	Currency    string        `envconfig:"BOOKING_CURRENCY" default:"KES"`
	CountryCode string        `envconfig:"BOOKING_PHONE_COUNTRY_CODE" default:"254"`
	HoldTTL     time.Duration `envconfig:"BOOKING_HOLD_TTL" default:"30m"`
}

type NotifierConfig struct {
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	FromEmail      string `envconfig:"NOTIFIER_FROM_EMAIL" default:"bookings@example.com"`
	FromName       string `envconfig:"NOTIFIER_FROM_NAME" default:"Tourism Bookings"`
	BatchSize      int32  `envconfig:"NOTIFIER_BATCH_SIZE" default:"50"`
	MaxAttempts    int32  `envconfig:"NOTIFIER_MAX_ATTEMPTS" default:"5"`
}

// SchedulerConfig uses six-field cron specs (seconds first).
type SchedulerConfig struct {
	Enabled             bool   `envconfig:"SCHEDULER_ENABLED" default:"true"`
	ReleaseExpiredHolds string `envconfig:"SCHEDULER_RELEASE_HOLDS" default:"0 */1 * * * *"`
	DispatchNotices     string `envconfig:"SCHEDULER_DISPATCH_NOTICES" default:"*/15 * * * * *"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "Africa/Nairobi",
			MaxConns: 10,
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "Africa/Nairobi",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 10800,
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Issuer:   "tourism-auth-test",
			Duration: "1h",
		},
		Gateway: GatewayConfig{
			BaseURL:        "http://127.0.0.1:0",
			ConsumerKey:    "key",
			ConsumerSecret: "secret",
			ShortCode:      "174379",
			PassKey:        "passkey",
			CallbackURL:    "http://localhost:8889/api/payments/callback",
			Timeout:        2 * time.Second,
			RatePerSec:     100,
			RateBurst:      100,
			TokenRetries:   1,
		},
		Booking: BookingConfig{
			Currency:    "KES",
			CountryCode: "254",
			HoldTTL:     30 * time.Minute,
		},
		Notifier: NotifierConfig{
			FromEmail:   "bookings@example.com",
			FromName:    "Tourism Bookings",
			BatchSize:   10,
			MaxAttempts: 3,
		},
		Scheduler: SchedulerConfig{
			Enabled: false,
		},
	}
}

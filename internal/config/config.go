package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       string
	AppEnv     string
	CORSOrigin string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the GORM postgres DSN.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// JWTConfig holds token verification settings. Tokens are issued elsewhere
// on the platform; this service only verifies them.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds event broker settings.
type KafkaConfig struct {
	Brokers []string
}

// KakaoPayConfig holds the payment gateway settings. The three redirect URLs
// are pre-configured, never caller-supplied.
type KakaoPayConfig struct {
	BaseURL    string
	AdminKey   string
	CID        string
	SuccessURL string
	CancelURL  string
	FailURL    string
	Timeout    time.Duration
}

// AuthorizationHeader returns the value of the Authorization header the
// gateway expects.
func (c KakaoPayConfig) AuthorizationHeader() string {
	return "KakaoAK " + c.AdminKey
}

// SweepConfig holds the expiry/reconciliation sweep settings.
type SweepConfig struct {
	Interval   time.Duration
	PendingTTL time.Duration
}

// ServiceConfig holds all configuration for the billing service.
type ServiceConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Kafka    KafkaConfig
	KakaoPay KakaoPayConfig
	Sweep    SweepConfig
	// Coupons maps academy coupon codes to academy display names.
	Coupons map[string]string
}

// Load reads configuration from the environment (and a .env file when
// present) and returns a ServiceConfig.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", ":8085")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("CORS_ORIGIN", "http://localhost:5173")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "billing")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")

	v.SetDefault("KAKAOPAY_BASE_URL", "https://kapi.kakao.com")
	v.SetDefault("KAKAOPAY_CID", "TC0ONETIME")
	v.SetDefault("KAKAOPAY_SUCCESS_URL", "http://localhost:5173/payment/success")
	v.SetDefault("KAKAOPAY_CANCEL_URL", "http://localhost:5173/payment/cancel")
	v.SetDefault("KAKAOPAY_FAIL_URL", "http://localhost:5173/payment/fail")
	v.SetDefault("KAKAOPAY_TIMEOUT", "10s")

	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("SWEEP_PENDING_TTL", "24h")

	// Default deployment coupons; override with ACADEMY_COUPONS, a
	// comma-separated list of code=name pairs.
	v.SetDefault("ACADEMY_COUPONS", "soldeskjongro=솔데스크 학원,soldesk2024=솔데스크 학원,soldesk=솔데스크 학원")

	cfg := &ServiceConfig{
		Server: ServerConfig{
			Port:       v.GetString("SERVICE_PORT"),
			AppEnv:     v.GetString("APP_ENV"),
			CORSOrigin: v.GetString("CORS_ORIGIN"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(v.GetString("KAFKA_BROKERS"), ","),
		},
		KakaoPay: KakaoPayConfig{
			BaseURL:    v.GetString("KAKAOPAY_BASE_URL"),
			AdminKey:   v.GetString("KAKAOPAY_ADMIN_KEY"),
			CID:        v.GetString("KAKAOPAY_CID"),
			SuccessURL: v.GetString("KAKAOPAY_SUCCESS_URL"),
			CancelURL:  v.GetString("KAKAOPAY_CANCEL_URL"),
			FailURL:    v.GetString("KAKAOPAY_FAIL_URL"),
			Timeout:    v.GetDuration("KAKAOPAY_TIMEOUT"),
		},
		Sweep: SweepConfig{
			Interval:   v.GetDuration("SWEEP_INTERVAL"),
			PendingTTL: v.GetDuration("SWEEP_PENDING_TTL"),
		},
		Coupons: parseCoupons(v.GetString("ACADEMY_COUPONS")),
	}

	if cfg.Server.AppEnv != "development" && cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required outside development")
	}

	return cfg, nil
}

// parseCoupons parses "code=name,code=name" into a map. Malformed pairs are
// skipped.
func parseCoupons(raw string) map[string]string {
	coupons := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		code, name, ok := strings.Cut(pair, "=")
		if !ok || code == "" || name == "" {
			continue
		}
		coupons[code] = name
	}
	return coupons
}

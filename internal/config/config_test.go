package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8085", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.AppEnv)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://kapi.kakao.com", cfg.KakaoPay.BaseURL)
	assert.Equal(t, "TC0ONETIME", cfg.KakaoPay.CID)
	assert.Equal(t, 10*time.Second, cfg.KakaoPay.Timeout)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.PendingTTL)
	assert.Equal(t, "솔데스크 학원", cfg.Coupons["soldeskjongro"])
	assert.Equal(t, "솔데스크 학원", cfg.Coupons["soldesk2024"])
	assert.Equal(t, "솔데스크 학원", cfg.Coupons["soldesk"])
}

func TestLoad_RequiresJWTSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "super-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "super-secret", cfg.JWT.Secret)
}

func TestLoad_KafkaBrokersSplit(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "dbhost", Port: "5433", User: "svc", Password: "pw",
		DBName: "billing", SSLMode: "require",
	}
	assert.Equal(t,
		"host=dbhost port=5433 user=svc password=pw dbname=billing sslmode=require",
		db.DSN())
}

func TestAuthorizationHeader(t *testing.T) {
	cfg := KakaoPayConfig{AdminKey: "abc123"}
	assert.Equal(t, "KakaoAK abc123", cfg.AuthorizationHeader())
}

func TestParseCoupons(t *testing.T) {
	got := parseCoupons("a=Academy A,b=Academy B")
	assert.Equal(t, map[string]string{"a": "Academy A", "b": "Academy B"}, got)

	// Malformed pairs are skipped.
	got = parseCoupons("a=Academy A,broken,=noname,nocode=")
	assert.Equal(t, map[string]string{"a": "Academy A"}, got)

	assert.Empty(t, parseCoupons(""))
}

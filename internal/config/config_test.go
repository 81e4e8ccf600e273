package config

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "gemini-1.5-flash", cfg.AIModel)
	assert.InDelta(t, 0.7, cfg.AITemperature, 1e-9)
	assert.Equal(t, 25*time.Second, cfg.AICallTimeout)
	assert.Equal(t, "answer-evaluated", cfg.KafkaAnswersTopic)
	assert.Equal(t, "ai-mock-interview", cfg.OTELServiceName)
	assert.Equal(t, 0, cfg.DataRetentionDays)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.MediaEnabled())
	assert.False(t, cfg.AIEnabled())
}

func Test_Load_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AI_API_KEY", "key")
	t.Setenv("AI_CALL_TIMEOUT", "10s")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.True(t, cfg.AuthEnabled())
	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.True(t, cfg.MediaEnabled())
	assert.Equal(t, 10*time.Second, cfg.GetAICallTimeout())
}

func Test_Load_InvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}

func Test_TestEnvShortensTimeouts(t *testing.T) {
	cfg := Config{AppEnv: "test", AICallTimeout: time.Minute}
	assert.Equal(t, 2*time.Second, cfg.GetAICallTimeout())

	rc := cfg.GetDBRetryConfig()
	assert.Equal(t, 500*time.Millisecond, rc.MaxElapsed)
}

func Test_RetryConfig_NewBackOff(t *testing.T) {
	rc := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, MaxElapsed: 5 * time.Second, Multiplier: 3}
	b := rc.NewBackOff()
	eb, ok := b.(*backoff.ExponentialBackOff)
	require.True(t, ok)
	assert.Equal(t, 100*time.Millisecond, eb.InitialInterval)
	assert.Equal(t, time.Second, eb.MaxInterval)
	assert.Equal(t, 5*time.Second, eb.MaxElapsedTime)
	assert.InDelta(t, 3.0, eb.Multiplier, 1e-9)
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"grpc_addr":             "www.example:9000",
		"db_driver":             "postgres",
		"database_dsn":          "postgres://pally@db/pally",
		"server_secret":         "server",
		"wallet_encryption_key": "storage",
		"token_secret":          "token",
		"session_ttl":           "30m",
		"deploy_wait_timeout":   60000000000,
		"otp_ttl":               "5m",
		"otp_attempts":          5,
		"challenge_store":       "redis",
		"redis_url":             "redis://cache:6379/0",
		"expose_otp":            true,
		"derivation_workers":    4,
		"s3_bucket":             "bucket",
		"fee_unit":              "ETH",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.GRPCAddr)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "postgres://pally@db/pally", cfg.DatabaseDSN)
		assert.Equal(t, "server", cfg.ServerSecret)
		assert.Equal(t, "storage", cfg.WalletEncryptionKey)
		assert.Equal(t, "token", cfg.TokenSecret)
		assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
		assert.Equal(t, time.Minute, cfg.DeployWaitTimeout)
		assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
		assert.Equal(t, 5, cfg.OTPAttempts)
		assert.Equal(t, "redis", cfg.ChallengeStore)
		assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
		assert.True(t, cfg.ExposeOTP)
		assert.Equal(t, 4, cfg.DerivationWorkers)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "ETH", cfg.FeeUnit)

		// absent fields keep their defaults
		assert.Equal(t, ":9090", cfg.MetricsAddr)
		assert.Equal(t, "log", cfg.OTPSender)
		assert.Equal(t, "0.5", cfg.MinDeployBalance)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{GRPCAddr: "defaults:1234", DatabaseDSN: "vault.db", OTPTTL: 2 * time.Minute}
		parseJson(cfg)

		assert.Equal(t, &Config{GRPCAddr: "defaults:1234", DatabaseDSN: "vault.db", OTPTTL: 2 * time.Minute}, cfg)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}

package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "long and short flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret",
				"-server-secret", "srv", "--wallet-encryption-key=wek",
				"-session-ttl", "1h", "-otp-attempts", "5", "-expose-otp",
				"-challenge-store", "bbolt", "-bolt-path", "/var/lib/pally/c.db",
				"-starknet-rpc-url", "http://node:9545", "-s3-bucket", "bucket",
			},
			expected: &Config{
				GRPCAddr:            "127.0.0.1:9090",
				DatabaseDSN:         "db",
				TokenSecret:         "secret",
				ServerSecret:        "srv",
				WalletEncryptionKey: "wek",
				SessionTTL:          time.Hour,
				OTPAttempts:         5,
				ExposeOTP:           true,
				ChallengeStore:      "bbolt",
				BoltPath:            "/var/lib/pally/c.db",
				RPCURL:              "http://node:9545",
				S3Bucket:            "bucket",
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"cmd", "-backup", "-x", "1", "-log-level", "DEBUG"},
			expected: &Config{LogLevel: "DEBUG"},
		},
		{
			name:        "bad duration panics",
			args:        []string{"cmd", "-otp-ttl", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

func TestParseFlags_Environment(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Setenv("GRPC_ADDR", ":7000")
	t.Setenv("OTP_ATTEMPTS", "7")
	t.Setenv("EXPOSE_OTP", "true")
	t.Setenv("TOKEN_SECRET", "from-env")

	os.Args = []string{"cmd", "-s", "from-flag"}

	config := &Config{}
	parseFlags(config)

	assert.Equal(t, ":7000", config.GRPCAddr)
	assert.Equal(t, 7, config.OTPAttempts)
	assert.True(t, config.ExposeOTP)
	assert.Equal(t, "from-flag", config.TokenSecret)
}

func TestParseFlags_BadEnvironmentPanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Setenv("OTP_ATTEMPTS", "many")
	os.Args = []string{"cmd"}

	require.Panics(t, func() { parseFlags(&Config{}) })
}

// Package config handles configuration for the wallet server: defaults, a
// JSON overlay, .env and environment variables, and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the wallet server.
//
// ServerSecret feeds key derivation and must never change once wallets
// exist. WalletEncryptionKey seals stored private keys. TokenSecret signs
// session tokens. An empty AdminToken disables the operator RPCs, and an
// empty S3Bucket disables backups.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	DBDriver    string
	DatabaseDSN string

	ServerSecret        string
	WalletEncryptionKey string
	TokenSecret         string
	SessionTTL          time.Duration
	AdminToken          string

	RPCURL            string
	AccountClassHash  string
	FeeTokenAddress   string
	FeeUnit           string
	MinDeployBalance  string
	DeployMaxFee      string
	DeployWaitTimeout time.Duration

	ChallengeStore string
	RedisURL       string
	BoltPath       string
	OTPTTL         time.Duration
	OTPAttempts    int
	OTPSender      string
	NATSURL        string
	NATSSubject    string
	ExposeOTP      bool

	DerivationWorkers int

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	LogLevel string
}

// LoadDefaults populates Config with development defaults. The three
// secrets have no default.
func (c *Config) LoadDefaults() {
	c.GRPCAddr = ":50051"
	c.MetricsAddr = ":9090"
	c.DBDriver = "sqlite"
	c.DatabaseDSN = "file:data/wallets.db"
	c.SessionTTL = 15 * time.Minute
	c.RPCURL = "https://starknet-mainnet.public.blastapi.io"
	c.AccountClassHash = "0x540d7f5ec7ecf317e68d48564934cb99259781b1ee3cedbbc37ec5337f8e688"
	c.FeeTokenAddress = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
	c.MinDeployBalance = "0.5"
	c.DeployMaxFee = "0.1"
	c.DeployWaitTimeout = 5 * time.Minute
	c.ChallengeStore = "memory"
	c.BoltPath = "data/challenges.db"
	c.OTPTTL = 10 * time.Minute
	c.OTPAttempts = 3
	c.OTPSender = "log"
	c.NATSSubject = "pally.otp.deliver"
	c.DerivationWorkers = 2
	c.S3Region = "us-east-1"
	c.LogLevel = "INFO"
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerSecret == "" {
		errs = append(errs, errors.New("server secret is required"))
	}
	if c.WalletEncryptionKey == "" {
		errs = append(errs, errors.New("wallet encryption key is required"))
	}
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("token secret is required"))
	}
	if c.ChallengeStore == "redis" && c.RedisURL == "" {
		errs = append(errs, errors.New("redis challenge store needs a redis url"))
	}
	if c.OTPSender == "nats" && c.NATSURL == "" {
		errs = append(errs, errors.New("nats otp sender needs a nats url"))
	}
	if c.OTPAttempts < 1 {
		errs = append(errs, fmt.Errorf("otp attempts must be positive, got %d", c.OTPAttempts))
	}
	if c.DerivationWorkers < 1 {
		errs = append(errs, fmt.Errorf("derivation workers must be positive, got %d", c.DerivationWorkers))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, then .env and the environment, and finally
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

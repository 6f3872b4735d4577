package config

import (
	"encoding/json"
	"os"

	"github.com/okhaimie-dev/PallyApp/internal/flagx"
	"github.com/okhaimie-dev/PallyApp/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept either a
// string such as "10m" or integer nanoseconds. Absent fields keep their
// current value.
type JsonConfig struct {
	GRPCAddr            string         `json:"grpc_addr"`
	MetricsAddr         string         `json:"metrics_addr"`
	DBDriver            string         `json:"db_driver"`
	DatabaseDSN         string         `json:"database_dsn"`
	ServerSecret        string         `json:"server_secret"`
	WalletEncryptionKey string         `json:"wallet_encryption_key"`
	TokenSecret         string         `json:"token_secret"`
	SessionTTL          timex.Duration `json:"session_ttl"`
	AdminToken          string         `json:"admin_token"`
	RPCURL              string         `json:"starknet_rpc_url"`
	AccountClassHash    string         `json:"account_class_hash"`
	FeeTokenAddress     string         `json:"fee_token_address"`
	FeeUnit             string         `json:"fee_unit"`
	MinDeployBalance    string         `json:"min_deploy_balance"`
	DeployMaxFee        string         `json:"deploy_max_fee"`
	DeployWaitTimeout   timex.Duration `json:"deploy_wait_timeout"`
	ChallengeStore      string         `json:"challenge_store"`
	RedisURL            string         `json:"redis_url"`
	BoltPath            string         `json:"bolt_path"`
	OTPTTL              timex.Duration `json:"otp_ttl"`
	OTPAttempts         int            `json:"otp_attempts"`
	OTPSender           string         `json:"otp_sender"`
	NATSURL             string         `json:"nats_url"`
	NATSSubject         string         `json:"nats_subject"`
	ExposeOTP           *bool          `json:"expose_otp"`
	DerivationWorkers   int            `json:"derivation_workers"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3Endpoint          string         `json:"s3_endpoint"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays the JSON file named by -c or -config onto config.
// Nothing is loaded when neither flag is given. An unreadable or invalid
// file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DBDriver, c.DBDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.ServerSecret, c.ServerSecret)
	setString(&config.WalletEncryptionKey, c.WalletEncryptionKey)
	setString(&config.TokenSecret, c.TokenSecret)
	setString(&config.AdminToken, c.AdminToken)
	setString(&config.RPCURL, c.RPCURL)
	setString(&config.AccountClassHash, c.AccountClassHash)
	setString(&config.FeeTokenAddress, c.FeeTokenAddress)
	setString(&config.FeeUnit, c.FeeUnit)
	setString(&config.MinDeployBalance, c.MinDeployBalance)
	setString(&config.DeployMaxFee, c.DeployMaxFee)
	setString(&config.ChallengeStore, c.ChallengeStore)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.BoltPath, c.BoltPath)
	setString(&config.OTPSender, c.OTPSender)
	setString(&config.NATSURL, c.NATSURL)
	setString(&config.NATSSubject, c.NATSSubject)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.LogLevel, c.LogLevel)

	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.DeployWaitTimeout.Duration > 0 {
		config.DeployWaitTimeout = c.DeployWaitTimeout.Duration
	}
	if c.OTPTTL.Duration > 0 {
		config.OTPTTL = c.OTPTTL.Duration
	}
	if c.OTPAttempts > 0 {
		config.OTPAttempts = c.OTPAttempts
	}
	if c.DerivationWorkers > 0 {
		config.DerivationWorkers = c.DerivationWorkers
	}
	if c.ExposeOTP != nil {
		config.ExposeOTP = *c.ExposeOTP
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package config

import (
	"flag"
	"os"

	"github.com/facebookgo/flagenv"
	"github.com/joho/godotenv"
	"github.com/okhaimie-dev/PallyApp/internal/flagx"
)

// shortFlags maps the single-letter aliases kept for compatibility with
// existing deployment scripts.
var shortFlags = map[string]string{
	"a": "grpc-addr",
	"d": "database-dsn",
	"s": "token-secret",
}

// newFlagSet binds every setting to a flag named after it. Environment
// variables use the same names upper-cased with dashes turned into
// underscores, e.g. grpc-addr reads GRPC_ADDR.
func newFlagSet(name string, c *Config, withShort bool) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "address and port to run the gRPC server")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "address for the prometheus /metrics endpoint, empty to disable")
	fs.StringVar(&c.DBDriver, "db-driver", c.DBDriver, "credential database driver: sqlite or postgres")
	fs.StringVar(&c.DatabaseDSN, "database-dsn", c.DatabaseDSN, "credential database DSN")
	fs.StringVar(&c.ServerSecret, "server-secret", c.ServerSecret, "secret mixed into key derivation")
	fs.StringVar(&c.WalletEncryptionKey, "wallet-encryption-key", c.WalletEncryptionKey, "key protecting stored private keys")
	fs.StringVar(&c.TokenSecret, "token-secret", c.TokenSecret, "HMAC secret for session tokens")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "session token lifetime")
	fs.StringVar(&c.AdminToken, "admin-token", c.AdminToken, "operator token for admin RPCs, empty disables them")
	fs.StringVar(&c.RPCURL, "starknet-rpc-url", c.RPCURL, "Starknet JSON-RPC endpoint")
	fs.StringVar(&c.AccountClassHash, "account-class-hash", c.AccountClassHash, "account contract class hash")
	fs.StringVar(&c.FeeTokenAddress, "fee-token-address", c.FeeTokenAddress, "fee token contract address")
	fs.StringVar(&c.FeeUnit, "fee-unit", c.FeeUnit, "display unit of the fee token, empty derives it from the address")
	fs.StringVar(&c.MinDeployBalance, "min-deploy-balance", c.MinDeployBalance, "minimum fee-token balance to deploy, in whole tokens")
	fs.StringVar(&c.DeployMaxFee, "deploy-max-fee", c.DeployMaxFee, "fee budget of deploy transactions, in whole STRK")
	fs.DurationVar(&c.DeployWaitTimeout, "deploy-wait-timeout", c.DeployWaitTimeout, "how long to wait for a deploy receipt")
	fs.StringVar(&c.ChallengeStore, "challenge-store", c.ChallengeStore, "challenge store backend: memory, redis or bbolt")
	fs.StringVar(&c.RedisURL, "redis-url", c.RedisURL, "redis URL for the redis challenge store")
	fs.StringVar(&c.BoltPath, "bolt-path", c.BoltPath, "file for the bbolt challenge store")
	fs.DurationVar(&c.OTPTTL, "otp-ttl", c.OTPTTL, "challenge lifetime")
	fs.IntVar(&c.OTPAttempts, "otp-attempts", c.OTPAttempts, "verification attempts per challenge")
	fs.StringVar(&c.OTPSender, "otp-sender", c.OTPSender, "otp delivery: log or nats")
	fs.StringVar(&c.NATSURL, "nats-url", c.NATSURL, "NATS server URL")
	fs.StringVar(&c.NATSSubject, "nats-subject", c.NATSSubject, "NATS subject for otp delivery")
	fs.BoolVar(&c.ExposeOTP, "expose-otp", c.ExposeOTP, "return issued codes in responses (development only)")
	fs.IntVar(&c.DerivationWorkers, "derivation-workers", c.DerivationWorkers, "concurrent key derivations")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "backup bucket, empty disables backups")
	fs.StringVar(&c.S3Region, "s3-region", c.S3Region, "backup bucket region")
	fs.StringVar(&c.S3Endpoint, "s3-endpoint", c.S3Endpoint, "S3-compatible endpoint, e.g. http://127.0.0.1:9000")
	fs.StringVar(&c.S3AccessKey, "s3-access-key", c.S3AccessKey, "S3 access key, empty uses the default credential chain")
	fs.StringVar(&c.S3SecretKey, "s3-secret-key", c.S3SecretKey, "S3 secret key")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: DEBUG, INFO, WARN or ERROR")

	if withShort {
		for short, long := range shortFlags {
			f := fs.Lookup(long)
			fs.Var(f.Value, short, f.Usage+" (short)")
		}
	}

	return fs
}

// parseFlags applies .env, environment variables and then command-line
// flags to config. Arguments not recognized here are ignored so other
// components can define their own flags.
func parseFlags(config *Config) {
	_ = godotenv.Load()

	if err := flagenv.ParseSet("", newFlagSet("env", config, false)); err != nil {
		panic(err)
	}

	if err := flagx.ParseKnown(newFlagSet("main", config, true), os.Args[1:]); err != nil {
		panic(err)
	}
}

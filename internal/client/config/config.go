package config

import "time"

// Config holds runtime settings for the Pally CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the wallet gRPC endpoint.
//   - OnlineCheckInterval: how often the client checks server health.
//   - RequestTimeout: deadline applied to every call except DeployAccount.
//   - DeployTimeout: deadline for DeployAccount, which waits for the chain.
//   - LocalDB: path of the SQLite file caching the session.
//   - AdminToken: operator token for the stats and integrity commands.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	DeployTimeout       time.Duration
	LocalDB             string
	AdminToken          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.DeployTimeout = 6 * time.Minute
	c.LocalDB = "pally.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

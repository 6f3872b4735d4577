package config

import (
	"flag"
	"os"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        address and port of the wallet server
//	-i int           online check interval in seconds
//	-t duration      per-call timeout
//	-db string       local session database
//	-admin-token     operator token
//
// Arguments not listed above are ignored.
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "timeout for a single call")
	fs.StringVar(&cfg.LocalDB, "db", cfg.LocalDB, "local session database file")
	fs.StringVar(&cfg.AdminToken, "admin-token", cfg.AdminToken, "operator token for admin commands")

	if err := flagx.ParseKnown(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}

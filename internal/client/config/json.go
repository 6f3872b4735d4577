package config

import (
	"encoding/json"
	"os"

	"github.com/okhaimie-dev/PallyApp/internal/flagx"
	"github.com/okhaimie-dev/PallyApp/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	DeployTimeout       timex.Duration `json:"deploy_timeout"`
	LocalDB             string         `json:"local_db"`
	AdminToken          string         `json:"admin_token"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// with -c or -config. Fields absent from the file keep their value. Panics
// on read or unmarshal errors.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DeployTimeout.Duration > 0 {
		cfg.DeployTimeout = jc.DeployTimeout.Duration
	}
	if jc.LocalDB != "" {
		cfg.LocalDB = jc.LocalDB
	}
	if jc.AdminToken != "" {
		cfg.AdminToken = jc.AdminToken
	}
}

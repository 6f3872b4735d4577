// Package config loads runtime configuration for the Pally CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations may be strings like "15s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "request_timeout": "15s",
//	  "deploy_timeout": "6m",
//	  "local_db": "pally.db",
//	  "admin_token": ""
//	}
package config

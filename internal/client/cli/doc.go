// Package cli provides the interactive Pally command-line client.
//
// It wires configuration, the local session cache, the wallet API services
// and an interactive REPL. Typical flow: restore a cached session or sign in
// with a one-time code, start a background connectivity watcher and execute
// user commands.
//
// Key features:
//   - Login / Logout with an emailed one-time code
//   - Show the wallet, created on first login
//   - Deployment status, requirements, cost and deploy
//   - Operator stats and integrity checks
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli

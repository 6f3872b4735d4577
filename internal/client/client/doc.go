// Package client contains the CLI's side of the wallet API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) covering the
//     OTP login, wallet lookup, deployment and operator calls.
//  2. A gRPC implementation (see GRPCClient) that applies per-call deadlines,
//     attaches the session and admin tokens as metadata and maps gRPC status
//     codes to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) that opens
//     the SQLite session cache and applies the embedded goose migrations.
//
// # Error Handling
//
// Transport conditions surface as sentinel errors matched with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrNotFound and ErrRejected. A wrong OTP
// comes back as *common.InvalidCodeError carrying the attempts left.
//
// # Concurrency
//
// GRPCClient is safe for concurrent use. Token setters may be called while
// requests are in flight; each call reads the tokens once.
package client

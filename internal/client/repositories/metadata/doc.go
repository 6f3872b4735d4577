// Package metadata is a small key/value table in the CLI's local database.
// The CLI keeps its session there: the signed-in email, the login subject,
// the session token and its expiry.
package metadata

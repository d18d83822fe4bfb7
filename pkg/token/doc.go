// Package token provides helpers for the opaque and JWT tokens the CLI
// handles.
//
// Expiry inspection decodes the JWT payload without verifying the
// signature. Anything that cannot be decoded is treated as already
// expiring.
//
// Fingerprint gives a short stable identifier for a token so logs can
// correlate refreshes without ever carrying the token itself.
package token

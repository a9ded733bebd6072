// Package ir provides the shared record and value types for TrustLedger.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - amounts are int64 minor units
//   - Events are values; the log hands out deep copies, never its own maps
//   - Canonical JSON (RFC 8785 key order, NFC strings) for digests and storage
package ir

// Package redact removes secrets from a review unit before it is sent to the
// inference backend.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, credentials embedded in connection strings, and provider-specific
// tokens (GitHub, Slack, sk- keys). Redaction is applied line by line so
// line numbers in the diff and the context window stay valid.
//
// Files whose paths match the configured glob patterns are withheld from
// review entirely.
package redact

// Package cache provides a file-based cache for accepted backend responses.
//
// Entries are keyed by a SHA-256 hash of the backend name, model, prompts
// and request settings ([BuildKey]). Only responses that parsed into a
// review are stored, so a cached entry never replays a malformed answer.
// Expired entries are skipped on read and removed lazily.
//
// The default cache directory is $XDG_CACHE_HOME/gatekeep (or the
// OS-appropriate equivalent). Prompts are redacted before they are hashed.
package cache

// Package config holds compile-time tuning constants for the session and
// pump hot path — values the spec leaves as open, environment-dependent
// parameters rather than protocol contracts (spec §9 Open Questions).
package config

import "time"

const (
	// DefaultFidShards is the shard count for a session's fid table.
	// The spec does not mandate a value; 16 matches the shard counts the
	// teacher uses for its own hot, lookup-dominant caches.
	DefaultFidShards = 16

	// DefaultMaxMsize is the hard ceiling negotiable at Version.
	DefaultMaxMsize = 1 << 20

	// DefaultMinMsize is the floor msize per spec §3 SessionLimits.
	DefaultMinMsize = 256

	// DefaultTagsPerSession bounds outstanding tags per session.
	DefaultTagsPerSession = 128

	// DefaultBatchFrames is the default frames-per-batch for BatchIter
	// consumers that don't override it.
	DefaultBatchFrames = 32

	// DefaultWalkDepth is the cap on Walk wname components (spec §4.5).
	DefaultWalkDepth = 8

	// DefaultQueueDepthLimit is the per-session queue-depth ceiling before
	// back-pressure refusals increment /proc/pressure/busy.
	DefaultQueueDepthLimit = 64

	// DefaultShortWriteRetries bounds RetryN(attempts, backoff) when a
	// config does not specify one explicitly.
	DefaultShortWriteRetries = 3

	// DefaultShortWriteBackoff is the base backoff for short-write retries.
	DefaultShortWriteBackoff = 10 * time.Millisecond
)

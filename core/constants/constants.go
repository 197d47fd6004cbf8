package constants

import "time"

const (
	// DefaultTimeout bounds ordinary service operations.
	DefaultTimeout = 30 * time.Second

	// SyncTimeout bounds a single integration sync, provider round trips
	// included.
	SyncTimeout = 3 * time.Minute
)

const (
	// SyncFanOutLimit caps how many integrations sync concurrently in a
	// sync-all call.
	SyncFanOutLimit = 4

	// SyncStaleness is how old a successful sync may get before the hourly
	// scheduler enqueues the integration again.
	SyncStaleness = 1 * time.Hour

	// DefaultSyncRangeDays is the fetch window when the caller supplies no
	// explicit range; InitialBackfillDays is used for the first sync after a
	// connection is established.
	DefaultSyncRangeDays = 7
	InitialBackfillDays  = 30
)

const (
	// OAuthStateValidity is how long an issued OAuth state stays usable.
	OAuthStateValidity = 10 * time.Minute

	// OAuthNonceKeyPrefix namespaces consumed OAuth state nonces in redis.
	OAuthNonceKeyPrefix = "integrations:nonce:"
)

const (
	// DefaultPageSize and MaxPageSize bound list endpoints.
	DefaultPageSize = 20
	MaxPageSize     = 100
)

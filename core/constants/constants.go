package constants

import "time"

// Database pool settings
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// Context keys
const (
	ContextTokenData = "token_data"
)

// Redis key prefixes
const (
	RedisKeyRegenerateLock  = "proposals:lock:"
	RedisKeyExpiredNotified = "proposals:expired_notified:"
)

// Regeneration lock lease. Must outlive a full AI call with retries.
const RegenerateLockTTL = 2 * time.Minute

// ExpiredNotifyTTL dedupes the all-expired notification per event.
const ExpiredNotifyTTL = 24 * time.Hour

// Proposal engine tunables
const (
	// MinBufferMinutes rejects proposals starting too close to now.
	MinBufferMinutes = 45
	// DurationToleranceMinutes before a proposal end is corrected.
	DurationToleranceMinutes = 5
	// DefaultStrideMinutes between candidate window start times.
	DefaultStrideMinutes = 30
	// DefaultNumSuggestions returned when the caller does not ask for a count.
	DefaultNumSuggestions = 5
	// MaxPromptBusySegments shown to the ranker before truncation.
	MaxPromptBusySegments = 30
	// MaxPromptPreferredBuckets shown to the ranker.
	MaxPromptPreferredBuckets = 10
)

// AI call settings
const (
	AIMaxRetries     = 3
	AICallTimeout    = 60 * time.Second
	DefaultTimeout   = 30 * time.Second
	MaxEventDuration = 1440 // minutes
)

// Regeneration batch defaults
const (
	BatchMaxEvents      = 20
	BatchInterCallDelay = 2 * time.Second
)

// Asynq task types
const (
	TaskRegenerateBatch = "proposal:regenerate_batch"
	TaskRegenerateEvent = "proposal:regenerate_event"
)

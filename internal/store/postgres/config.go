package postgres

// EventStoreConfig holds event-specific configuration for the PostgreSQL
// event store. Pool configuration is handled separately via PoolConfig.
type EventStoreConfig struct {
	// RetentionDays configures how many days events should be retained.
	// 0 means no expiration (events kept indefinitely).
	RetentionDays int32

	// QueryTimeoutSeconds is the maximum time a query can run before timing out.
	// Default: 10 seconds
	// Set to 0 to use context timeouts only (no additional timeout)
	QueryTimeoutSeconds int32
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *EventStoreConfig) ApplyDefaults() {
	if c.QueryTimeoutSeconds == 0 {
		c.QueryTimeoutSeconds = 10 // 10 seconds
	}
}

package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort = "PORT"

	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRoomLockTTL           = "ROOM_LOCK_TTL"
	EnvRoomLockWaitTimeout   = "ROOM_LOCK_WAIT_TIMEOUT"
	EnvRoomLockRetryInterval = "ROOM_LOCK_RETRY_INTERVAL"

	EnvEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"

	EnvLogLevel = "LOG_LEVEL"
)

package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roomly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRequestTimeout  = 30 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRoomLockTTL           = 10 * time.Second
	DefaultRoomLockWaitTimeout   = 5 * time.Second
	DefaultRoomLockRetryInterval = 50 * time.Millisecond

	DefaultEventsTopic    = "booking.lifecycle"
	DefaultEventsDLQTopic = "booking.lifecycle.dlq"

	DefaultLogLevel = "info"
)

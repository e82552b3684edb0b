package config

import "time"

const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultAPIBaseURL = "http://localhost:8081"
	DefaultAPITimeout = 10 * time.Second

	DefaultBusinessTimeZone = "America/Sao_Paulo"
	DefaultSlotStep         = 45 * time.Minute
	DefaultSaveConcurrency  = 8
	DefaultSessionTTL       = 12 * time.Hour

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "barberdesk"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultKafkaEnabled  = false
	DefaultKafkaTopic    = "agenda.events"
	DefaultKafkaDLQTopic = ""

	DefaultPaginationLimit = 100
)

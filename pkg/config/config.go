// Package config loads the daemon configuration from the environment. A
// backend sink is enabled when its target is set; the console sink is
// enabled by the verbose flag.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Intake
	ListenAddr string // UDPLOG_LISTEN
	SyslogAddr string // SYSLOG_LISTEN; empty disables syslog intake

	// Backends
	KafkaBrokers     []string // KAFKA_BROKERS
	KafkaTopic       string   // KAFKA_TOPIC
	KafkaAcks        string   // KAFKA_ACKS
	KafkaCompression string   // KAFKA_COMPRESSION
	LumberAddr       string   // LUMBER_ADDR
	RedisAddr        string   // REDIS_ADDR
	RedisKey         string   // REDIS_KEY
	PostgresDSN      string   // POSTGRES_DSN
	ConsolePath      string   // CONSOLE_PATH; "stdout" or a file path
	Verbose          bool     // VERBOSE enables the console sink

	// Delivery policy, shared by all network sinks
	BacklogCapacity int           // BACKLOG_CAPACITY
	EvictPolicy     string        // EVICT_POLICY: oldest or newest
	BatchSize       int           // BATCH_SIZE, for the batching sinks
	FlushInterval   time.Duration // FLUSH_INTERVAL
	BackoffMin      time.Duration // BACKOFF_MIN
	BackoffMax      time.Duration // BACKOFF_MAX
	BackoffCap      int           // BACKOFF_CAP
	MaxAttempts     int           // MAX_SEND_ATTEMPTS, 0 retries forever
	DrainTimeout    time.Duration // DRAIN_TIMEOUT for shutdown flush
}

func getOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	switch v {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getStringSlice(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func Load() Config {
	return Config{
		ListenAddr: getOr("UDPLOG_LISTEN", "127.0.0.1:55647"),
		SyslogAddr: getOr("SYSLOG_LISTEN", ""),

		KafkaBrokers:     getStringSlice("KAFKA_BROKERS", ""),
		KafkaTopic:       getOr("KAFKA_TOPIC", "udplog"),
		KafkaAcks:        getOr("KAFKA_ACKS", "all"),
		KafkaCompression: getOr("KAFKA_COMPRESSION", ""),
		LumberAddr:       getOr("LUMBER_ADDR", ""),
		RedisAddr:        getOr("REDIS_ADDR", ""),
		RedisKey:         getOr("REDIS_KEY", "udplog"),
		PostgresDSN:      getOr("POSTGRES_DSN", ""),
		ConsolePath:      getOr("CONSOLE_PATH", "stdout"),
		Verbose:          getBool("VERBOSE", false),

		BacklogCapacity: getInt("BACKLOG_CAPACITY", 2500),
		EvictPolicy:     getOr("EVICT_POLICY", "oldest"),
		BatchSize:       getInt("BATCH_SIZE", 1000),
		FlushInterval:   getDuration("FLUSH_INTERVAL", 5*time.Second),
		BackoffMin:      getDuration("BACKOFF_MIN", time.Second),
		BackoffMax:      getDuration("BACKOFF_MAX", 30*time.Second),
		BackoffCap:      getInt("BACKOFF_CAP", 16),
		MaxAttempts:     getInt("MAX_SEND_ATTEMPTS", 0),
		DrainTimeout:    getDuration("DRAIN_TIMEOUT", 5*time.Second),
	}
}

package config

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server backing the response cache and the
// shared rate limiter.
type RedisConfig struct {
	Disabled    bool   // REDIS_DISABLED: run without Redis at all
	Addr        string // REDIS_HOST + REDIS_PORT, else REDIS_ADDR, else localhost:6379
	Password    string // REDIS_PASSWORD
	DB          int    // REDIS_DB
	TLS         bool   // REDIS_TLS
	TLSInsecure bool   // REDIS_TLS_INSECURE: skip certificate verification
	PingTimeout time.Duration
}

// LoadRedisConfig reads the REDIS_* variables.
func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}
	return RedisConfig{
		Disabled:    envBool("REDIS_DISABLED", false),
		Addr:        addr,
		Password:    envStr("REDIS_PASSWORD", ""),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		TLSInsecure: envBool("REDIS_TLS_INSECURE", false),
		PingTimeout: envDur("REDIS_PING_TIMEOUT", 2*time.Second),
	}
}

// Options translates the configuration into go-redis options.  With TLS
// on, the server certificate is verified against Addr's host unless
// TLSInsecure is set.
func (rc RedisConfig) Options() *redis.Options {
	opts := &redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	}
	if rc.TLS {
		host, _, err := net.SplitHostPort(rc.Addr)
		if err != nil {
			host = rc.Addr
		}
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ServerName:         host,
			InsecureSkipVerify: rc.TLSInsecure,
		}
	}
	return opts
}

// NewRedisClient connects and pings the server.  It returns nil when Redis
// is disabled or unreachable; callers then skip caching and limit requests
// per process.
func NewRedisClient(rc RedisConfig) *redis.Client {
	if rc.Disabled {
		return nil
	}
	if rc.TLS && rc.TLSInsecure {
		slog.Warn("redis: TLS certificate verification disabled", "addr", rc.Addr)
	}
	client := redis.NewClient(rc.Options())

	ctx, cancel := context.WithTimeout(context.Background(), rc.PingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis: ping failed", "addr", rc.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

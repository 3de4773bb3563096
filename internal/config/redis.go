package config

// Redis backs the response cache and the distributed rate limiter.
// Connection parameters come from the environment; when the server
// cannot be reached at startup the constructor returns nil and both
// middlewares degrade to no-ops instead of failing requests.

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from environment variables:
//
//	REDIS_HOST / REDIS_PORT – server address, preferred when both set
//	REDIS_ADDR              – host:port shorthand
//	REDIS_PASSWORD          – optional password
//	REDIS_DB                – database number, default 0
//	REDIS_TLS               – enable TLS when "true" or "1"
//	REDIS_TLS_INSECURE      – skip certificate verification (dev only)
//
// A nil return means the server did not answer a ping within two
// seconds.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	dbNum := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			dbNum = n
		}
	}

	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
		// Verification stays on unless explicitly disabled for local
		// setups with self-signed certificates.
		if iv := os.Getenv("REDIS_TLS_INSECURE"); strings.EqualFold(iv, "true") || iv == "1" {
			tlsConf.InsecureSkipVerify = true
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"dy_code/abogus"
)

type Config struct {
	Addr string

	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	AdminPasswordMD5 string

	// KeyCacheTTLSec applies to both the in-process and the redis key cache.
	KeyCacheTTLSec int
	RedisKeysKey   string

	// RateLimit is sign requests per second per key; 0 disables the limiter.
	RateLimit float64
	RateBurst int

	// SignEnv is the environment string used when a request omits env.
	SignEnv         string
	// SignFixedTS pins the token timestamp; 0 uses the wall clock.
	SignFixedTS     int64
	// SignFixedRandom pins the three seed inputs when it holds exactly three values.
	SignFixedRandom []float64

	LogLevel string
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// getenvFloats parses a comma separated list; any bad element yields nil.
func getenvFloats(key string) []float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}

func loadConfig() Config {
	// API_ADDR wins; otherwise API_HOST:API_PORT, default 0.0.0.0:8080
	apiHost := getenv("API_HOST", "0.0.0.0")
	apiPort := getenvInt("API_PORT", 8080)
	apiAddrDefault := fmt.Sprintf("%s:%d", apiHost, apiPort)

	ttl := getenvInt("API_KEY_CACHE_TTL_SEC", 30)
	if ttl <= 0 {
		ttl = 30
	}
	return Config{
		Addr: getenv("API_ADDR", apiAddrDefault),

		DBHost: getenv("DB_HOST", "127.0.0.1"),
		DBPort: getenvInt("DB_PORT", 3306),
		DBUser: getenv("DB_USER", "root"),
		DBPass: getenv("DB_PASSWORD", "123456"),
		DBName: getenv("DB_NAME", "dy_sign"),

		// lowercase hex MD5 of the admin password
		AdminPasswordMD5: strings.ToLower(getenv("ADMIN_PASSWORD_MD5", "")),

		KeyCacheTTLSec: ttl,
		RedisKeysKey:   getenv("REDIS_API_KEYS_KEY", "dy_sign:api_keys"),

		RateLimit: getenvFloat("API_RATE_LIMIT", 0),
		RateBurst: getenvInt("API_RATE_BURST", 5),

		SignEnv:         getenv("SIGN_ENV", abogus.DefaultEnvironment),
		SignFixedTS:     getenvInt64("SIGN_FIXED_TS", 0),
		SignFixedRandom: getenvFloats("SIGN_FIXED_RANDOM"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}
}

func (c Config) MySQLDSN() string {
	// parseTime scans TIMESTAMP columns; utf8mb4 for user agents with non-ascii text
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=Local",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName,
	)
}

// redisConfigured reports whether any REDIS_* connection variable is set.
func redisConfigured() bool {
	for _, k := range []string{"REDIS_URL", "REDIS_HOST"} {
		if strings.TrimSpace(os.Getenv(k)) != "" {
			return true
		}
	}
	return false
}

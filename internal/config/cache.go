package config

import (
	"strings"
	"time"
)

// CacheConfig drives the micro-cache in front of the seat status poll
// route.  Seat state changes every second during an on-sale, so the cache
// is off unless asked for and its TTL is kept short.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  TTLs above MaxCacheTTL are
// clamped so a misconfiguration cannot hide lock changes for long.
func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", false),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if c.TTL <= 0 {
		c.TTL = time.Second
	}
	if c.TTL > MaxCacheTTL {
		c.TTL = MaxCacheTTL
	}
	return c
}

// MaxCacheTTL bounds how stale a cached seat status may get.
const MaxCacheTTL = 5 * time.Second

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

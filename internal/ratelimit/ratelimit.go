// Package ratelimit throttles per-IP request rates for the auth endpoints.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks attempts per IP address within a sliding window.
type RateLimiter struct {
	attempts map[string][]time.Time
	mutex    sync.RWMutex
	limit    int
	window   time.Duration
	stopCh   chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow records an attempt from the given IP and reports whether it was
// still under the limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	attempts := rl.attempts[ip]
	validAttempts := make([]time.Time, 0, len(attempts)+1)
	for _, attemptTime := range attempts {
		if attemptTime.After(cutoff) {
			validAttempts = append(validAttempts, attemptTime)
		}
	}
	validAttempts = append(validAttempts, now)
	rl.attempts[ip] = validAttempts

	return len(validAttempts)-1 < rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Coarse reset to avoid indefinite growth.
			rl.mutex.Lock()
			rl.attempts = make(map[string][]time.Time)
			rl.mutex.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GetClientIP extracts the real client IP from the request.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseFirstIP(ips string) string {
	for i := 0; i < len(ips); i++ {
		if ips[i] == ',' {
			ips = ips[:i]
			break
		}
	}
	if parsedIP := net.ParseIP(strings.TrimSpace(ips)); parsedIP != nil {
		return parsedIP.String()
	}
	return ""
}

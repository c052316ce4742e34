// Package validations holds small input checks shared across packages:
// environment lookups, URL sanity checks and text cleanup.
package validations

import (
	"net/url"
	"os"
)

// maxURLLength caps stored bookmark URLs.
const maxURLLength = 2048

func GetEnvWithDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// GetEnvOrDie panics when the variable is unset. Used only at startup for
// configuration the server cannot run without.
func GetEnvOrDie(name string) string {
	value := os.Getenv(name)
	if value == "" {
		panic("Environment variable " + name + " is not set")
	}
	return value
}

// IsURLValid accepts absolute http(s) URLs with a host.
func IsURLValid(link string) bool {
	if link == "" || len(link) > maxURLLength {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}

// ExtractHostname returns the host part of a link, or the link itself when
// it does not parse. Used for display and logging, never for matching.
func ExtractHostname(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	return u.Host
}

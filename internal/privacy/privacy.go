// Package privacy scrubs operator data (service URLs with their tokens,
// e-mail addresses, home directories) from text that leaves the machine.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// shoutrrr URLs use service schemes such as telegram:// or smtp://
	urlPattern      = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.\-]*://[^\s"']+`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	homePathPattern = regexp.MustCompile(`(/home|/Users)/[^/\s]+`)
	tokenPattern    = regexp.MustCompile(`(?i)\b(token|dsn|key|password)[=:]\S+`)
	ipv4Pattern     = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ScrubMessage anonymizes URLs and redacts e-mail addresses, home
// directories and inline credentials in message.
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	scrubbed = emailPattern.ReplaceAllString(scrubbed, "[EMAIL_REDACTED]")
	scrubbed = homePathPattern.ReplaceAllString(scrubbed, "$1/[USER]")
	return tokenPattern.ReplaceAllString(scrubbed, "$1=[REDACTED]")
}

// AnonymizeURL replaces a URL by a stable hash of its scheme, host category,
// port and path shape. Credentials and query strings never reach the hash.
func AnonymizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if parsedURL.Scheme != "" {
		parts = append(parts, parsedURL.Scheme)
	}
	if host := parsedURL.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if parsedURL.Port() != "" {
		parts = append(parts, "port-"+parsedURL.Port())
	}
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		parts = append(parts, anonymizePath(parsedURL.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	// the scheme stays readable so a failing service can still be told apart
	return fmt.Sprintf("%s://url-%x", parsedURL.Scheme, hash[:12])
}

// categorizeHost anonymizes hostnames while preserving useful categorization
func categorizeHost(host string) string {
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return "localhost"
	}
	if isPrivateIP(host) {
		return "private-ip"
	}
	if isIPAddress(host) {
		return "public-ip"
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return "domain-" + parts[len(parts)-1]
	}
	return "unknown-host"
}

// anonymizePath hashes each path segment, keeping the number of segments.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	var segments []string
	for _, segment := range strings.Split(path, "/") {
		switch {
		case segment == "":
			continue
		case isNumeric(segment):
			segments = append(segments, "numeric")
		default:
			hash := sha256.Sum256([]byte(segment))
			segments = append(segments, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}
	return strings.Join(segments, "/")
}

func isPrivateIP(host string) bool {
	privateRanges := []string{
		"10.", "172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
		"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
		"192.168.", "169.254.",
		"fc00:", "fd00:", "fe80:",
	}

	host = strings.ToLower(host)
	for _, prefix := range privateRanges {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

func isIPAddress(host string) bool {
	return ipv4Pattern.MatchString(host) || strings.Contains(host, ":")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

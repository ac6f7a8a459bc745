package service

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// pathTraversalMarkers are matched against the lower-cased raw and decoded URL.
var pathTraversalMarkers = []string{"../", "..\\", "%2e%2e", "..%2f", "%2f..", "..;"}

// suspiciousValueMarkers are matched against lower-cased header values.
var suspiciousValueMarkers = []string{
	"<script", "javascript:", "${jndi:", "' or ", "\" or ", "union select", "; drop ", "../", "\x00",
}

// Inspect returns heuristic warnings about a request. Warnings never fail verification.
func Inspect(rawURL string, headers http.Header) []string {
	warnings := make([]string, 0)

	lowered := strings.ToLower(rawURL)
	decoded, err := url.PathUnescape(lowered)
	if err != nil {
		decoded = lowered
	}
	for _, marker := range pathTraversalMarkers {
		if strings.Contains(lowered, marker) || strings.Contains(decoded, marker) {
			warnings = append(warnings, "path traversal pattern in url")
			break
		}
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range headers[name] {
			if isSuspiciousValue(value) {
				warnings = append(warnings, "suspicious value in header "+strings.ToLower(name))
				break
			}
		}
	}

	return warnings
}

func isSuspiciousValue(value string) bool {
	lowered := strings.ToLower(value)
	for _, marker := range suspiciousValueMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	for _, r := range value {
		if r < 0x20 && r != '\t' {
			return true
		}
	}
	return false
}

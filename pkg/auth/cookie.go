package auth

import (
	"net/url"
)

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
}

// DeriveCookieSettings determines cookie security settings from the base URL:
//   - Local dashboard (http://127.0.0.1:8501) → Secure: false
//   - Behind TLS or a TLS proxy (https://listings.example.com) → Secure: true
//
// forceSecure marks the cookie Secure regardless of scheme, for deployments
// where TLS terminates in front of an http base URL.
func DeriveCookieSettings(baseURL string, forceSecure bool) CookieSettings {
	return CookieSettings{Secure: forceSecure || isHTTPS(baseURL)}
}

// isHTTPS determines if the given base URL uses HTTPS protocol.
// Returns true for HTTPS, false for HTTP, true for empty/invalid URLs (safe default).
func isHTTPS(baseURL string) bool {
	if baseURL == "" {
		return true
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return true
	}

	return parsedURL.Scheme != "http"
}

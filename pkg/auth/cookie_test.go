package auth

import (
	"testing"
)

func TestDeriveCookieSettings(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		forceSecure bool
		expected    bool
	}{
		{"localhost with port", "http://localhost:8501", false, false},
		{"loopback address", "http://127.0.0.1:8501", false, false},
		{"https deployment", "https://listings.example.com", false, true},
		{"forced behind proxy", "http://10.0.0.5:8501", true, true},
		{"empty url is secure", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DeriveCookieSettings(tt.baseURL, tt.forceSecure)
			if result.Secure != tt.expected {
				t.Errorf("Secure: expected %v, got %v", tt.expected, result.Secure)
			}
		})
	}
}

func TestIsHTTPS(t *testing.T) {
	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com", true},
		{"http://example.com", false},
		{"https://localhost:8501", true},
		{"http://localhost:8501", false},
		{"", true},                  // empty defaults to true (safe)
		{"://bad", true},            // invalid defaults to true (safe)
		{"ftp://example.com", true}, // non-http treated as secure
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := isHTTPS(tt.url)
			if result != tt.expected {
				t.Errorf("isHTTPS(%q): expected %v, got %v", tt.url, tt.expected, result)
			}
		})
	}
}

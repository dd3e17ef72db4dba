package config

import (
	"net/url"
	"testing"
)

func TestResolveHostForDocker_NotInDocker(t *testing.T) {
	// These hosts should never be modified regardless of Docker status
	tests := []struct {
		input    string
		expected string
	}{
		{"warehouse.example.com", "warehouse.example.com"},
		{"192.168.1.100", "192.168.1.100"},
		{"host.docker.internal", "host.docker.internal"},
	}

	for _, tt := range tests {
		result := ResolveHostForDocker(tt.input)
		if result != tt.expected {
			t.Errorf("ResolveHostForDocker(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestResolveHostForDocker_LocalhostVariants(t *testing.T) {
	localhostVariants := []string{"localhost", "127.0.0.1"}

	for _, host := range localhostVariants {
		result := ResolveHostForDocker(host)
		if IsRunningInDocker() {
			if result != "host.docker.internal" {
				t.Errorf("ResolveHostForDocker(%q) in Docker = %q, want %q", host, result, "host.docker.internal")
			}
		} else {
			if result != host {
				t.Errorf("ResolveHostForDocker(%q) not in Docker = %q, want %q", host, result, host)
			}
		}
	}
}

func TestResolveURLForDocker_KeepsPortAndPath(t *testing.T) {
	u, err := url.Parse("postgres://reader@localhost:5433/listings?sslmode=disable")
	if err != nil {
		t.Fatalf("url.Parse failed: %v", err)
	}

	ResolveURLForDocker(u)

	wantHost := "localhost:5433"
	if IsRunningInDocker() {
		wantHost = "host.docker.internal:5433"
	}
	if u.Host != wantHost {
		t.Errorf("Host = %q, want %q", u.Host, wantHost)
	}
	if u.Path != "/listings" || u.RawQuery != "sslmode=disable" {
		t.Errorf("path or query changed: %q %q", u.Path, u.RawQuery)
	}
}

func TestResolveURLForDocker_Nil(t *testing.T) {
	// Must not panic
	ResolveURLForDocker(nil)
	ResolveURLForDocker(&url.URL{Scheme: "md", Opaque: "test_cso_g"})
}

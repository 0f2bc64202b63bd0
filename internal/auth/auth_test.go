package auth

import (
	"net/http/httptest"
	"testing"
)

func TestParseBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantOK    bool
	}{
		{"standard", "Bearer abc123", "abc123", true},
		{"lowercase prefix", "bearer abc123", "abc123", true},
		{"mixed case prefix", "BeArEr tok", "tok", true},
		{"surrounding whitespace", "  Bearer  abc  ", "abc", true},
		{"missing header", "", "", false},
		{"no prefix", "abc123", "", false},
		{"prefix only", "Bearer ", "", false},
		{"wrong scheme", "Basic abc123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/ingest", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			token, ok := ParseBearerToken(r)
			if ok != tt.wantOK || token != tt.wantToken {
				t.Errorf("ParseBearerToken(%q) = (%q, %v), want (%q, %v)",
					tt.header, token, ok, tt.wantToken, tt.wantOK)
			}
		})
	}
}

func TestSHA256Hex(t *testing.T) {
	// Known vector for the empty string.
	if got := SHA256Hex(""); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("SHA256Hex(\"\") = %q", got)
	}
	if got := SHA256Hex("T"); len(got) != 64 {
		t.Errorf("SHA256Hex(\"T\") length = %d, want 64", len(got))
	}
	if SHA256Hex("a") == SHA256Hex("b") {
		t.Error("distinct tokens must hash differently")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("deadbeef", "deadbeef") {
		t.Error("equal strings must compare true")
	}
	if ConstantTimeEqual("deadbeef", "deadbeee") {
		t.Error("unequal strings must compare false")
	}
	if ConstantTimeEqual("short", "a longer value") {
		t.Error("length mismatch must compare false")
	}
	if ConstantTimeEqual("", "x") {
		t.Error("empty vs non-empty must compare false")
	}
	if !ConstantTimeEqual("", "") {
		t.Error("two empty strings must compare true")
	}
}

func TestExtractServerAddress(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			"explicit header wins",
			map[string]string{"X-Server-Address": "play.example.com:25565", "X-Forwarded-For": "1.2.3.4"},
			"play.example.com:25565",
		},
		{
			"forwarded-for first entry gets default port",
			map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"},
			"203.0.113.9:25565",
		},
		{
			"local forwarded-for falls through to real-ip",
			map[string]string{"X-Forwarded-For": "192.168.1.5", "X-Real-IP": "198.51.100.7"},
			"198.51.100.7:25565",
		},
		{
			"loopback real-ip yields nothing",
			map[string]string{"X-Real-IP": "127.0.0.1"},
			"",
		},
		{
			"172.20 counts as local",
			map[string]string{"X-Forwarded-For": "172.20.0.3"},
			"",
		},
		{
			"no headers",
			map[string]string{},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/handshake", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ExtractServerAddress(r); got != tt.want {
				t.Errorf("ExtractServerAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsLocalIP(t *testing.T) {
	local := []string{"127.0.0.1", "::1", "localhost", "10.1.2.3", "192.168.0.1",
		"172.16.0.1", "172.19.255.1", "172.20.0.1", "172.29.9.9", "172.31.0.1"}
	for _, ip := range local {
		if !isLocalIP(ip) {
			t.Errorf("isLocalIP(%q) = false, want true", ip)
		}
	}
	public := []string{"8.8.8.8", "203.0.113.1", "172.15.0.1", "172.32.0.1"}
	for _, ip := range public {
		if isLocalIP(ip) {
			t.Errorf("isLocalIP(%q) = true, want false", ip)
		}
	}
}

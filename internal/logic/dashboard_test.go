package logic

import "testing"

func TestExtractHostPort(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantHost string
		wantPort int
		wantOK   bool
	}{
		{"bare host", "mc.example.com", "mc.example.com", 25565, true},
		{"host with port", "mc.example.com:25570", "mc.example.com", 25570, true},
		{"http url", "http://mc.example.com:8080/callback", "mc.example.com", 8080, true},
		{"https url no port", "https://mc.example.com/path", "mc.example.com", 25565, true},
		{"bracketed ipv6", "[::1]:25565", "::1", 25565, true},
		{"bracketed ipv6 no port", "[2001:db8::1]", "2001:db8::1", 25565, true},
		{"ipv4 with port", "203.0.113.7:25566", "203.0.113.7", 25566, true},
		{"invalid port falls back", "mc.example.com:notaport", "mc.example.com", 25565, true},
		{"out of range port falls back", "mc.example.com:70000", "mc.example.com", 25565, true},
		{"empty", "", "", 0, false},
		{"whitespace", "   ", "", 0, false},
		{"scheme only", "http://", "", 0, false},
		{"unterminated bracket", "[::1:25565", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, ok := extractHostPort(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("extractHostPort(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("extractHostPort(%q) = %q:%d, want %q:%d", tt.raw, host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

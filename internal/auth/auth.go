// Package auth holds the shared authentication primitives used across
// handlers: bearer parsing, token hashing, constant-time comparison, and
// client-address extraction for the dashboard ping feature.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// ParseBearerToken extracts the token from an Authorization header of the
// form "Bearer <token>" (case-insensitive prefix). Returns "" and false when
// the header is missing, malformed, or carries an empty token.
func ParseBearerToken(r *http.Request) (string, bool) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(auth) <= len(prefix) {
		return "", false
	}
	if !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// SHA256Hex returns the lower-case hex SHA-256 of the token. Stored hashes
// and request hashes are always compared in this encoding.
func SHA256Hex(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compares two strings in time independent of the matching
// prefix length. On length mismatch a dummy compare of equal length to b is
// still performed so the mismatch does not leak as a timing shortcut.
func ConstantTimeEqual(a, b string) bool {
	ab := []byte(a)
	bb := []byte(b)
	if len(ab) != len(bb) {
		dummy := make([]byte, len(bb))
		subtle.ConstantTimeCompare(dummy, bb)
		return false
	}
	return subtle.ConstantTimeCompare(ab, bb) == 1
}

// ExtractServerAddress derives the game server's reachable address for the
// dashboard ping feature. Precedence: explicit X-Server-Address header, then
// the first non-local entry of X-Forwarded-For, then X-Real-IP. Forwarded
// addresses get the default game port appended.
func ExtractServerAddress(r *http.Request) string {
	if addr := strings.TrimSpace(r.Header.Get("X-Server-Address")); addr != "" {
		return addr
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// Comma-separated chain; the first entry is closest to the client.
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" && !isLocalIP(first) {
			return first + ":25565"
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" && !isLocalIP(realIP) {
		return realIP + ":25565"
	}

	return ""
}

// isLocalIP reports whether the address is loopback or in a private range.
// The "172.2" prefix intentionally over-matches 172.20.-172.29. in addition
// to the 172.16/12 block; kept as-is until the rule is deliberately revised.
func isLocalIP(ip string) bool {
	return ip == "127.0.0.1" ||
		ip == "::1" ||
		ip == "localhost" ||
		strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "172.16.") ||
		strings.HasPrefix(ip, "172.17.") ||
		strings.HasPrefix(ip, "172.18.") ||
		strings.HasPrefix(ip, "172.19.") ||
		strings.HasPrefix(ip, "172.2") ||
		strings.HasPrefix(ip, "172.30.") ||
		strings.HasPrefix(ip, "172.31.")
}

package logging

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHost(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{
			name:     "URL with IPv4",
			host:     "https://192.168.1.100:8006",
			expected: "https://<redacted-ip>:8006",
		},
		{
			name:     "URL with hostname",
			host:     "https://pve.example.com:8006",
			expected: "https://pve.example.com:8006",
		},
		{
			name:     "bare IPv4",
			host:     "10.0.0.5",
			expected: "<redacted-ip>",
		},
		{
			name:     "URL with IPv6",
			host:     "https://[2001:db8::1]:8006",
			expected: "https://<redacted-ip>:8006",
		},
		{
			name:     "bare IPv6",
			host:     "2001:db8::1",
			expected: "<redacted-ip>",
		},
		{
			name:     "empty",
			host:     "",
			expected: "<empty>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeHost(tt.host))
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))
	assert.Equal(t, "[token:6 chars]", SanitizeToken("secret"))
	// Token content must never appear in the output.
	assert.NotContains(t, SanitizeToken("super-secret-value"), "super")
}

func TestSanitizedErr(t *testing.T) {
	err := errors.New("dial tcp 192.168.1.100:8006: connection refused")
	attr := SanitizedErr(err)
	assert.Equal(t, KeyError, attr.Key)
	assert.NotContains(t, attr.Value.String(), "192.168.1.100")
	assert.Contains(t, attr.Value.String(), "<redacted-ip>")
}

func TestErrNil(t *testing.T) {
	attr := Err(nil)
	assert.Equal(t, "", attr.Value.String())
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, slog.String(KeyCluster, "prod"), Cluster("prod"))
	assert.Equal(t, slog.String(KeyNode, "pve1"), Node("pve1"))
	assert.Equal(t, slog.Int(KeyVMID, 104), VMID(104))
	assert.Equal(t, slog.String(KeyStatus, StatusSuccess), Status(StatusSuccess))
}

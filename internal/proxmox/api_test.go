package proxmox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAPIURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected Endpoint
		wantErr  bool
	}{
		{
			name:     "host and port",
			url:      "https://pve.example.com:8006",
			expected: Endpoint{Scheme: "https", Host: "pve.example.com", Port: 8006},
		},
		{
			name:     "default port",
			url:      "https://pve.example.com",
			expected: Endpoint{Scheme: "https", Host: "pve.example.com", Port: 8006},
		},
		{
			name:     "with API path",
			url:      "https://pve.example.com:8006/api2/json",
			expected: Endpoint{Scheme: "https", Host: "pve.example.com", Port: 8006},
		},
		{
			name:     "custom port",
			url:      "https://10.0.0.5:443",
			expected: Endpoint{Scheme: "https", Host: "10.0.0.5", Port: 443},
		},
		{
			name:    "missing scheme",
			url:     "pve.example.com:8006",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, err := ParseAPIURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, endpoint)
		})
	}
}

func TestEndpointBaseURL(t *testing.T) {
	e := Endpoint{Scheme: "https", Host: "pve.example.com", Port: 8006}
	assert.Equal(t, "https://pve.example.com:8006/api2/json", e.BaseURL())
}

func TestSplitTokenID(t *testing.T) {
	token, err := SplitTokenID("root@pam!mcp")
	require.NoError(t, err)
	assert.Equal(t, "root@pam", token.User)
	assert.Equal(t, "mcp", token.TokenName)

	_, err = SplitTokenID("root@pam")
	assert.Error(t, err, "missing token name separator")

	_, err = SplitTokenID("root!mcp")
	assert.Error(t, err, "missing realm")
}

func TestAuthorizationHeader(t *testing.T) {
	header := authorizationHeader("root@pam!mcp", "s3cret")
	assert.Equal(t, "PVEAPIToken=root@pam!mcp=s3cret", header)
}

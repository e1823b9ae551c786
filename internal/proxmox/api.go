package proxmox

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort is the default Proxmox VE API port.
const DefaultPort = 8006

// apiBasePath is the JSON API prefix shared by all Proxmox VE endpoints.
const apiBasePath = "/api2/json"

// Endpoint holds the parsed components of a Proxmox API URL.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// BaseURL returns the normalized API base URL including the JSON API prefix.
func (e Endpoint) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d%s", e.Scheme, e.Host, e.Port, apiBasePath)
}

// ParseAPIURL parses a Proxmox API URL into its components.
//
// Accepted forms:
//   - https://host:8006
//   - https://host:8006/api2/json
//   - https://host
//
// The port defaults to 8006 when absent.
func ParseAPIURL(apiURL string) (Endpoint, error) {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid API URL %q: %w", apiURL, err)
	}
	if parsed.Scheme == "" || parsed.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("invalid API URL %q: scheme and host are required", apiURL)
	}

	port := DefaultPort
	if p := parsed.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, fmt.Errorf("invalid API URL %q: bad port: %w", apiURL, err)
		}
		port = n
	}

	return Endpoint{
		Scheme: parsed.Scheme,
		Host:   parsed.Hostname(),
		Port:   port,
	}, nil
}

// TokenID holds the parsed components of a Proxmox API token identifier.
type TokenID struct {
	// User is the token owner in user@realm form.
	User string
	// TokenName is the name of the API token.
	TokenName string
}

// SplitTokenID splits a token identifier of the form "user@realm!tokenname"
// into its components.
func SplitTokenID(tokenID string) (TokenID, error) {
	user, name, ok := strings.Cut(tokenID, "!")
	if !ok {
		return TokenID{}, fmt.Errorf("token ID must include '!' separating user and token name, e.g. root@pam!mcp")
	}
	if !strings.Contains(user, "@") {
		return TokenID{}, fmt.Errorf("token ID user part must include '@realm', e.g. root@pam!mcp")
	}
	return TokenID{User: user, TokenName: name}, nil
}

// authorizationHeader builds the PVEAPIToken authorization header value.
func authorizationHeader(tokenID, secret string) string {
	return fmt.Sprintf("PVEAPIToken=%s=%s", tokenID, secret)
}

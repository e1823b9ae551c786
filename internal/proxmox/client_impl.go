package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/proxworks/mcp-proxmox/internal/logging"
)

// Options configures a Proxmox API client.
type Options struct {
	// APIURL is the cluster API URL, e.g. https://pve.example.com:8006.
	APIURL string

	// TokenID is the API token identifier (user@realm!tokenname).
	TokenID string

	// TokenSecret is the API token secret.
	TokenSecret string

	// VerifyTLS controls certificate verification. Disable only for
	// clusters with self-signed certificates.
	VerifyTLS bool

	// Timeout bounds individual API requests. Default: 30 seconds.
	Timeout time.Duration

	// Defaults carries per-cluster soft defaults (node, storage, bridge).
	// The client never interprets them; Defaults() passes them through.
	Defaults map[string]string

	// Logger for request-level debug logging. Default: slog.Default().
	Logger *slog.Logger
}

// apiClient is the HTTP implementation of Client.
type apiClient struct {
	baseURL  string
	host     string
	auth     string
	defaults map[string]string
	http     *http.Client
	logger   *slog.Logger
}

// Ensure apiClient implements Client.
var _ Client = (*apiClient)(nil)

// taskPollInterval is how often WaitTask re-reads task status.
const taskPollInterval = time.Second

// NewClient creates a Proxmox API client for a single cluster endpoint.
// It validates the URL and token format but performs no network I/O;
// reachability is checked lazily by the first call (or Version).
func NewClient(opts Options) (Client, error) {
	endpoint, err := ParseAPIURL(opts.APIURL)
	if err != nil {
		return nil, err
	}
	if _, err := SplitTokenID(opts.TokenID); err != nil {
		return nil, err
	}
	if opts.TokenSecret == "" {
		return nil, fmt.Errorf("token secret is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: !opts.VerifyTLS, //nolint:gosec // operator opt-in for self-signed clusters
		MinVersion:         tls.VersionTLS12,
	}

	return &apiClient{
		baseURL:  endpoint.BaseURL(),
		host:     endpoint.Host,
		auth:     authorizationHeader(opts.TokenID, opts.TokenSecret),
		defaults: opts.Defaults,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}, nil
}

func (c *apiClient) Host() string {
	return c.host
}

func (c *apiClient) Defaults() map[string]string {
	return c.defaults
}

// APIError is returned when the Proxmox API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("proxmox API error: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("proxmox API error: %s", e.Status)
}

// do performs a request against an API path and decodes the "data" envelope
// into out. out may be nil when the response body is irrelevant.
func (c *apiClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", c.auth)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("proxmox API call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("empty response data from %s", path)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decoding response data from %s: %w", path, err)
	}
	return nil
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *apiClient) post(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, form, out)
}

func (c *apiClient) Version(ctx context.Context) (*Version, error) {
	var v Version
	if err := c.get(ctx, "/version", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *apiClient) ListNodes(ctx context.Context) ([]Node, error) {
	var nodes []Node
	if err := c.get(ctx, "/nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *apiClient) NodeStatus(ctx context.Context, node string) (map[string]any, error) {
	var status map[string]any
	if err := c.get(ctx, "/nodes/"+url.PathEscape(node)+"/status", &status); err != nil {
		return nil, err
	}
	return status, nil
}

// listResources reads the cluster resources endpoint. The API accepts
// type=vm but not type=lxc, so container listings fetch everything and
// filter locally.
func (c *apiClient) listResources(ctx context.Context, kind GuestKind) ([]Guest, error) {
	path := "/cluster/resources"
	if kind == GuestKindVM {
		path += "?type=vm"
	}

	var resources []Guest
	if err := c.get(ctx, path, &resources); err != nil {
		return nil, err
	}

	guests := resources[:0]
	for _, r := range resources {
		switch kind {
		case GuestKindVM:
			if r.Type == "qemu" || r.Type == "vm" {
				guests = append(guests, r)
			}
		case GuestKindContainer:
			if r.Type == "lxc" {
				guests = append(guests, r)
			}
		}
	}
	return guests, nil
}

func (c *apiClient) ListGuests(ctx context.Context, kind GuestKind, filter GuestFilter) ([]Guest, error) {
	guests, err := c.listResources(ctx, kind)
	if err != nil {
		return nil, err
	}

	filtered := guests[:0]
	search := strings.ToLower(filter.Search)
	for _, g := range guests {
		if filter.Node != "" && g.Node != filter.Node {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(g.Name), search) {
			continue
		}
		filtered = append(filtered, g)
	}
	return filtered, nil
}

func (c *apiClient) ResolveGuest(ctx context.Context, kind GuestKind, sel GuestSelector) (*Guest, error) {
	if sel.VMID == 0 && sel.Name == "" {
		return nil, fmt.Errorf("provide either vmid or name")
	}

	guests, err := c.listResources(ctx, kind)
	if err != nil {
		return nil, err
	}

	var candidates []Guest
	for _, g := range guests {
		if sel.VMID != 0 && g.VMID != sel.VMID {
			continue
		}
		if sel.VMID == 0 && g.Name != sel.Name {
			continue
		}
		if sel.Node != "" && g.Node != sel.Node {
			continue
		}
		candidates = append(candidates, g)
	}

	switch {
	case len(candidates) == 0:
		return nil, fmt.Errorf("no %s found matching selector", kind)
	case len(candidates) > 1:
		return nil, fmt.Errorf("multiple guests match name %q; specify node to disambiguate", sel.Name)
	}

	guest := candidates[0]
	return &guest, nil
}

func (c *apiClient) guestPath(kind GuestKind, node string, vmid int) string {
	return fmt.Sprintf("/nodes/%s/%s/%d", url.PathEscape(node), string(kind), vmid)
}

func (c *apiClient) GuestConfig(ctx context.Context, kind GuestKind, node string, vmid int) (map[string]any, error) {
	var config map[string]any
	if err := c.get(ctx, c.guestPath(kind, node, vmid)+"/config", &config); err != nil {
		return nil, err
	}
	return config, nil
}

// lifecycle posts a status action (start, stop, shutdown, reboot) and
// returns the UPID of the task the cluster started.
func (c *apiClient) lifecycle(ctx context.Context, kind GuestKind, node string, vmid int, action string) (UPID, error) {
	var upid string
	if err := c.post(ctx, c.guestPath(kind, node, vmid)+"/status/"+action, url.Values{}, &upid); err != nil {
		return "", err
	}
	return UPID(upid), nil
}

func (c *apiClient) StartGuest(ctx context.Context, kind GuestKind, node string, vmid int) (UPID, error) {
	return c.lifecycle(ctx, kind, node, vmid, "start")
}

func (c *apiClient) StopGuest(ctx context.Context, kind GuestKind, node string, vmid int) (UPID, error) {
	return c.lifecycle(ctx, kind, node, vmid, "stop")
}

func (c *apiClient) ShutdownGuest(ctx context.Context, kind GuestKind, node string, vmid int) (UPID, error) {
	return c.lifecycle(ctx, kind, node, vmid, "shutdown")
}

func (c *apiClient) RebootGuest(ctx context.Context, kind GuestKind, node string, vmid int) (UPID, error) {
	return c.lifecycle(ctx, kind, node, vmid, "reboot")
}

func (c *apiClient) ListStorage(ctx context.Context) ([]Storage, error) {
	var storage []Storage
	if err := c.get(ctx, "/storage", &storage); err != nil {
		return nil, err
	}
	return storage, nil
}

func (c *apiClient) StorageStatus(ctx context.Context, node, storage string) (map[string]any, error) {
	path := "/nodes/" + url.PathEscape(node) + "/storage/" + url.PathEscape(storage) + "/status"
	var status map[string]any
	if err := c.get(ctx, path, &status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *apiClient) TaskStatus(ctx context.Context, node string, upid UPID) (*TaskStatus, error) {
	path := "/nodes/" + url.PathEscape(node) + "/tasks/" + url.PathEscape(string(upid)) + "/status"
	var status TaskStatus
	if err := c.get(ctx, path, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *apiClient) WaitTask(ctx context.Context, node string, upid UPID, timeout time.Duration) (*TaskStatus, error) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(taskPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.TaskStatus(waitCtx, node, upid)
		if err != nil {
			return nil, err
		}
		if status.Finished() {
			return status, nil
		}

		select {
		case <-waitCtx.Done():
			return status, fmt.Errorf("task %s still running: %w", upid, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

package nimos

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arrayops/acrctl/internal/acr"
	"github.com/arrayops/acrctl/internal/observability"
)

const defaultPort = 5392

// Config describes one array management endpoint and its credentials.
type Config struct {
	// Endpoint is the array host. A bare hostname gets https:// and the
	// default management port; a full scheme://host:port is used as given.
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
	// InsecureSkipVerify disables TLS verification for lab arrays with
	// self-signed certificates.
	InsecureSkipVerify bool
}

// WithDefaults fills unset fields with usable defaults.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Client is a session-token HTTP client for the array management API. It is
// constructed per invocation; the token is fetched lazily on first use.
type Client struct {
	cfg  Config
	base string
	http *http.Client
	log  zerolog.Logger

	mu    sync.Mutex
	token string
}

var _ acr.ArrayAPI = (*Client)(nil)

// NewClient validates the config and builds a client. No network activity
// happens until the first call.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("nimos: endpoint required")
	}
	if strings.TrimSpace(cfg.Username) == "" || cfg.Password == "" {
		return nil, fmt.Errorf("nimos: username and password required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if !strings.Contains(base, "://") {
		base = fmt.Sprintf("https://%s:%d", base, defaultPort)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("nimos: invalid endpoint %q: %w", cfg.Endpoint, err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		log:  log,
	}, nil
}

// ensureToken authenticates once and caches the session token.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	body, err := json.Marshal(dataEnvelope{Data: mustJSON(tokenRequest{
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})})
	if err != nil {
		return "", fmt.Errorf("nimos: encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+pathTokens, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("nimos: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.RecordArrayRequest("tokens", 0, time.Since(start))
		return "", fmt.Errorf("nimos: authenticate: %w", err)
	}
	defer resp.Body.Close()
	observability.RecordArrayRequest("tokens", resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("nimos: read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("nimos: authenticate: %s", responseError(resp.StatusCode, raw))
	}

	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("nimos: decode token response: %w", err)
	}
	var tok tokenResponse
	if err := json.Unmarshal(env.Data, &tok); err != nil {
		return "", fmt.Errorf("nimos: decode token response: %w", err)
	}
	if strings.TrimSpace(tok.SessionToken) == "" {
		return "", fmt.Errorf("nimos: authenticate: empty session token")
	}

	c.token = tok.SessionToken
	c.log.Debug().Str("endpoint", c.base).Msg("array session established")
	return c.token, nil
}

// do issues one authenticated request and returns the raw response body.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("nimos: encode %s request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("nimos: build %s request: %w", op, err)
	}
	req.Header.Set("X-Auth-Token", token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.RecordArrayRequest(op, 0, time.Since(start))
		return nil, fmt.Errorf("nimos: %s: %w", op, err)
	}
	defer resp.Body.Close()
	observability.RecordArrayRequest(op, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nimos: read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("nimos: %s: %s", op, responseError(resp.StatusCode, raw))
	}
	return raw, nil
}

// lookupFirst queries a detail collection and decodes the first match, or nil
// when the collection has none.
func (c *Client) lookupFirst(ctx context.Context, op, path string, query url.Values) (object, error) {
	raw, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("nimos: decode %s response: %w", op, err)
	}
	var objs []object
	if err := json.Unmarshal(env.Data, &objs); err != nil {
		return nil, fmt.Errorf("nimos: decode %s response: %w", op, err)
	}
	if len(objs) == 0 {
		return nil, nil
	}
	return objs[0], nil
}

func refFromObject(obj object) *acr.RemoteRef {
	if obj == nil {
		return nil
	}
	return &acr.RemoteRef{ID: obj.id(), Attrs: obj.attrs()}
}

// LookupInitiatorGroup resolves an initiator group by name.
func (c *Client) LookupInitiatorGroup(ctx context.Context, name string) (*acr.RemoteRef, error) {
	obj, err := c.lookupFirst(ctx, "initiator_groups.get", pathInitiatorGroups, url.Values{"name": {name}})
	if err != nil {
		return nil, err
	}
	return refFromObject(obj), nil
}

// LookupVolume resolves a volume by name.
func (c *Client) LookupVolume(ctx context.Context, name string) (*acr.RemoteRef, error) {
	obj, err := c.lookupFirst(ctx, "volumes.get", pathVolumes, url.Values{"name": {name}})
	if err != nil {
		return nil, err
	}
	return refFromObject(obj), nil
}

// LookupACRByVolume resolves the access control record bound to a volume.
// The array keeps at most one per volume context.
func (c *Client) LookupACRByVolume(ctx context.Context, volName string) (*acr.RemoteRef, error) {
	obj, err := c.lookupFirst(ctx, "access_control_records.get", pathACRsDetail, url.Values{"vol_name": {volName}})
	if err != nil {
		return nil, err
	}
	return refFromObject(obj), nil
}

func (c *Client) lookupID(ctx context.Context, op, path string, name string) (string, error) {
	obj, err := c.lookupFirst(ctx, op, path, url.Values{"name": {name}})
	if err != nil {
		return "", err
	}
	if obj == nil {
		return "", nil
	}
	return obj.id(), nil
}

// LookupChapUser resolves a CHAP user name to its identifier.
func (c *Client) LookupChapUser(ctx context.Context, name string) (string, error) {
	return c.lookupID(ctx, "chap_users.get", pathChapUsers, name)
}

// LookupProtocolEndpoint resolves a protocol endpoint name to its identifier.
func (c *Client) LookupProtocolEndpoint(ctx context.Context, name string) (string, error) {
	return c.lookupID(ctx, "protocol_endpoints.get", pathProtocolEndpoints, name)
}

// LookupSnapshot resolves a snapshot name to its identifier.
func (c *Client) LookupSnapshot(ctx context.Context, name string) (string, error) {
	return c.lookupID(ctx, "snapshots.get", pathSnapshots, name)
}

// CreateACR creates a record binding the initiator group to the volume,
// serializing only the set parameter fields.
func (c *Client) CreateACR(ctx context.Context, initiatorGroupID, volID string, params acr.CreateParams) (*acr.RemoteRef, error) {
	data := map[string]any{
		acr.AttrInitiatorGroupID: initiatorGroupID,
		acr.AttrVolID:            volID,
	}
	for k, v := range params.Fields() {
		switch k {
		case acr.AttrLun:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("nimos: invalid lun %q: %w", v, err)
			}
			data[k] = n
		case acr.AttrPECandidateIDs:
			data[k] = strings.Split(v, ",")
		default:
			data[k] = v
		}
	}

	raw, err := c.do(ctx, "access_control_records.create", http.MethodPost, pathACRs, nil, map[string]any{"data": data})
	if err != nil {
		return nil, err
	}
	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("nimos: decode create response: %w", err)
	}
	var obj object
	if err := json.Unmarshal(env.Data, &obj); err != nil {
		return nil, fmt.Errorf("nimos: decode create response: %w", err)
	}
	return refFromObject(obj), nil
}

// DeleteACR removes a record by identifier.
func (c *Client) DeleteACR(ctx context.Context, acrID string) error {
	_, err := c.do(ctx, "access_control_records.delete", http.MethodDelete, pathACRs+"/"+url.PathEscape(acrID), nil, nil)
	return err
}

func responseError(status int, raw []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil {
		if text := apiErr.text(); text != "" {
			return fmt.Sprintf("HTTP %d: %s", status, text)
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

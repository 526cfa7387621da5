// Package rabbit is a thin client for the RabbitMQ management HTTP API,
// covering the read and write surface needed to inspect and migrate
// federation configuration.
package rabbit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/rabbitops/fedmig/internal/models"
	apperrors "github.com/rabbitops/fedmig/pkg/errors"
)

const (
	// DefaultManagementPort is the RabbitMQ management plugin listen port.
	DefaultManagementPort = "15672"
	// DefaultVhost is the root virtual host.
	DefaultVhost = "/"
)

// Endpoint identifies one broker management endpoint.
type Endpoint struct {
	Host     string
	Port     string
	Username string
	Password string
	Vhost    string
}

// Addr returns host:port, applying the default management port.
func (e Endpoint) Addr() string {
	port := e.Port
	if port == "" {
		port = DefaultManagementPort
	}
	return e.Host + ":" + port
}

// EncodedVhost returns the vhost as a percent-encoded path segment; the root
// vhost encodes to %2F.
func (e Endpoint) EncodedVhost() string {
	vhost := e.Vhost
	if vhost == "" {
		vhost = DefaultVhost
	}
	return url.PathEscape(vhost)
}

func (e Endpoint) baseURL() string {
	return "http://" + e.Addr()
}

// Client talks to one broker's management API using basic authentication.
// All calls are sequential blocking requests; no retries are performed, a
// network error is surfaced exactly once.
type Client struct {
	endpoint Endpoint
	http     *http.Client
	log      *zap.SugaredLogger
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func NewClient(endpoint Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     http.DefaultClient,
		log:      zap.S().Named("rabbit"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint this client is bound to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// ProbeAuth verifies the credentials against GET /api/overview. An HTTP
// error status and a transport failure both yield false; details go to the
// log, never to the caller.
func (c *Client) ProbeAuth(ctx context.Context) bool {
	target := c.endpoint.baseURL() + "/api/overview"
	c.log.Infow("testing API authentication", "url", target, "username", c.endpoint.Username)

	resp, body, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.log.Errorw("error during authentication test", "error", err)
		return false
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Errorw("authentication failed", "status", resp.StatusCode, "response", string(body))
		return false
	}
	return true
}

// FederationUpstreams reads the federation-upstream parameters of the
// endpoint's vhost.
func (c *Client) FederationUpstreams(ctx context.Context) ([]models.Upstream, error) {
	var upstreams []models.Upstream
	path := "/api/parameters/federation-upstream/" + c.endpoint.EncodedVhost()
	if err := c.getJSON(ctx, path, &upstreams); err != nil {
		return nil, apperrors.NewFetchError(c.endpoint.Addr(), "federation upstreams", err)
	}
	return upstreams, nil
}

// Policies reads all policies of the endpoint's vhost, unfiltered.
func (c *Client) Policies(ctx context.Context) ([]models.Policy, error) {
	var policies []models.Policy
	path := "/api/policies/" + c.endpoint.EncodedVhost()
	if err := c.getJSON(ctx, path, &policies); err != nil {
		return nil, apperrors.NewFetchError(c.endpoint.Addr(), "policies", err)
	}
	return policies, nil
}

// FederationLinks reads the running federation links of the whole broker.
func (c *Client) FederationLinks(ctx context.Context) ([]models.LinkStatus, error) {
	var links []models.LinkStatus
	if err := c.getJSON(ctx, "/api/federation-links", &links); err != nil {
		return nil, apperrors.NewFetchError(c.endpoint.Addr(), "federation links", err)
	}
	return links, nil
}

// Exchanges reads all exchanges of the broker; used for federation plugin
// detection.
func (c *Client) Exchanges(ctx context.Context) ([]models.Exchange, error) {
	var exchanges []models.Exchange
	if err := c.getJSON(ctx, "/api/exchanges", &exchanges); err != nil {
		return nil, apperrors.NewFetchError(c.endpoint.Addr(), "exchanges", err)
	}
	return exchanges, nil
}

// PutFederationUpstream upserts a federation-upstream parameter under the
// given name. The broker overwrites an existing parameter of the same name.
func (c *Client) PutFederationUpstream(ctx context.Context, name string, value models.UpstreamValue) error {
	path := "/api/parameters/federation-upstream/" + c.endpoint.EncodedVhost() + "/" + url.PathEscape(name)
	return c.putJSON(ctx, "federation upstream", name, path, value)
}

// policyBody is the writable subset of a policy accepted by
// PUT /api/policies/{vhost}/{name}.
type policyBody struct {
	Pattern    string         `json:"pattern"`
	Definition map[string]any `json:"definition"`
	Priority   int            `json:"priority"`
	ApplyTo    string         `json:"apply-to"`
}

// PutPolicy upserts a policy under the given name.
func (c *Client) PutPolicy(ctx context.Context, name string, policy models.Policy) error {
	path := "/api/policies/" + c.endpoint.EncodedVhost() + "/" + url.PathEscape(name)
	body := policyBody{
		Pattern:    policy.Pattern,
		Definition: policy.Definition,
		Priority:   policy.Priority,
		ApplyTo:    policy.ApplyTo,
	}
	return c.putJSON(ctx, "policy", name, path, body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	target := c.endpoint.baseURL() + path
	c.log.Debugw("GET", "url", target)

	resp, body, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) putJSON(ctx context.Context, kind, name, path string, body any) error {
	target := c.endpoint.baseURL() + path
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.NewWriteError(kind, name, 0, "", err)
	}
	c.log.Debugw("PUT", "url", target)

	resp, respBody, err := c.do(ctx, http.MethodPut, target, payload)
	if err != nil {
		return apperrors.NewWriteError(kind, name, 0, "", err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return apperrors.NewWriteError(kind, name, resp.StatusCode, string(respBody), nil)
	}
}

// do issues one request with basic auth and returns the drained response.
func (c *Client) do(ctx context.Context, method, target string, payload []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, err
	}
	req.SetBasicAuth(c.endpoint.Username, c.endpoint.Password)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

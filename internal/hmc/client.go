// Package hmc provides a client for the HMC UoM REST API.
package hmc

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"viosinspect/internal/config"
)

const (
	logonPath        = "/rest/api/web/Logon"
	logonContentType = "application/vnd.ibm.powervm.web+xml; type=LogonRequest"

	logonBody = `<LogonRequest schemaVersion="V1_0" ` +
		`xmlns="http://www.ibm.com/xmlns/systems/power/firmware/web/mc/2012_10/" ` +
		`xmlns:mc="http://www.ibm.com/xmlns/systems/power/firmware/web/mc/2012_10/">` +
		`<UserID>%s</UserID><Password>%s</Password></LogonRequest>`
)

// Client is a client for the HMC UoM REST API. Logon must be called
// before any query method.
type Client struct {
	baseURL    string
	timeout    time.Duration
	retry      config.RetryConfig
	httpClient *resty.Client
	sessionKey string
	logger     zerolog.Logger
}

// NewClient creates a new HMC API client.
func NewClient(cfg *config.HMCConfig, retryCfg *config.RetryConfig, logger zerolog.Logger) *Client {
	// Set default timeout if not specified
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// Set default retry config if not specified
	retry := config.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
	if retryCfg != nil {
		retry = *retryCfg
	}

	baseURL := fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port)

	// HMCs almost always run with self-signed certificates, so TLS
	// verification is opt-in.
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}).
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay * 8). // Max wait time for exponential backoff
		AddRetryCondition(retryCondition)

	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		retry:      retry,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "hmc-client").Logger(),
	}
}

// retryCondition determines whether a request should be retried.
// Only retry on timeout, 5xx errors, or connection failures.
// Do not retry on 4xx errors.
func retryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp != nil && resp.StatusCode() >= 500 {
		return true
	}
	return false
}

// Logon opens a REST session and stores the session key for
// subsequent requests.
func (c *Client) Logon(ctx context.Context, user, password string) error {
	c.logger.Debug().Str("user", user).Msg("opening HMC session")

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", logonContentType).
		SetBody(fmt.Sprintf(logonBody, user, password)).
		Put(logonPath)
	if err != nil {
		c.logger.Error().Err(err).Msg("logon request failed")
		return fmt.Errorf("failed to log on to HMC: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Msg("HMC logon returned non-200 status")
		return fmt.Errorf("HMC logon returned status %d", resp.StatusCode())
	}

	key, err := ParseSessionKey(bytes.NewReader(resp.Body()))
	if err != nil {
		return err
	}
	c.sessionKey = key
	return nil
}

// get performs an authenticated UoM request and returns the body.
// An HttpErrorResponse payload counts as a failure even on status 200.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	c.logger.Debug().Str("path", path).Msg("querying HMC")

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-API-Session", c.sessionKey).
		Get(path)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HMC request failed")
		return nil, fmt.Errorf("HMC request %s failed: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("path", path).
			Msg("HMC returned non-200 status")
		return nil, fmt.Errorf("HMC request %s returned status %d", path, resp.StatusCode())
	}
	if bytes.Contains(resp.Body(), []byte("HttpErrorResponse")) {
		c.logger.Error().Str("path", path).Msg("HMC returned an error response")
		return nil, fmt.Errorf("HMC request %s returned an error response", path)
	}
	return resp.Body(), nil
}

// ManagedSystems lists the managed systems of the HMC with their
// serials and associated VIOS UUIDs.
func (c *Client) ManagedSystems(ctx context.Context) ([]ManagedSystem, error) {
	body, err := c.get(ctx, "/rest/api/uom/ManagedSystem")
	if err != nil {
		return nil, err
	}
	return ParseManagedSystems(bytes.NewReader(body))
}

// VIOS fetches one VirtualIOServer entry.
func (c *Client) VIOS(ctx context.Context, uuid string) (*VIOS, error) {
	body, err := c.get(ctx, "/rest/api/uom/VirtualIOServer/"+uuid)
	if err != nil {
		return nil, err
	}
	return ParseVIOS(bytes.NewReader(body), uuid)
}

// LPARs lists the logical partitions of a managed system, keyed by
// partition ID.
func (c *Client) LPARs(ctx context.Context, managedSystemUUID string) (map[string]LPAR, error) {
	body, err := c.get(ctx, "/rest/api/uom/ManagedSystem/"+managedSystemUUID+"/LogicalPartition")
	if err != nil {
		return nil, err
	}
	return ParseLPARs(bytes.NewReader(body))
}

// VSCSIMappings fetches the vSCSI mappings of a VIOS, keyed by
// backing device UDID.
func (c *Client) VSCSIMappings(ctx context.Context, viosUUID string) (map[string]VSCSIMapping, error) {
	body, err := c.get(ctx, "/rest/api/uom/VirtualIOServer/"+viosUUID+"?group=ViosSCSIMapping")
	if err != nil {
		return nil, err
	}
	return ParseVSCSIMappings(bytes.NewReader(body))
}

// FCMappings fetches the virtual fibre channel mappings served by a
// VIOS, keyed by client partition ID.
func (c *Client) FCMappings(ctx context.Context, viosUUID, partitionID string) (map[string]FCMapping, error) {
	body, err := c.get(ctx, "/rest/api/uom/VirtualIOServer/"+viosUUID+"?group=ViosFCMapping")
	if err != nil {
		return nil, err
	}
	return ParseFCMappings(bytes.NewReader(body), partitionID)
}

// SEAAdapters fetches the shared ethernet adapters of a VIOS, keyed
// by sorted trunk VLAN IDs.
func (c *Client) SEAAdapters(ctx context.Context, viosUUID string) (map[string]SEAAdapter, error) {
	body, err := c.get(ctx, "/rest/api/uom/VirtualIOServer/"+viosUUID+"?group=ViosNetwork")
	if err != nil {
		return nil, err
	}
	return ParseSEAAdapters(bytes.NewReader(body))
}

// VNICConnections fetches the dedicated VNIC servers of a partition.
// A partition without VNICs is not an error: configured is false and
// the connection list empty.
func (c *Client) VNICConnections(ctx context.Context, lparUUID string) (connections []string, configured bool, err error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-API-Session", c.sessionKey).
		Get("/rest/api/uom/LogicalPartition/" + lparUUID + "/VirtualNICDedicated")
	if err != nil {
		return nil, false, fmt.Errorf("failed to query VNICs of %s: %w", lparUUID, err)
	}
	if resp.StatusCode() != http.StatusOK || bytes.Contains(resp.Body(), []byte("HttpErrorResponse")) {
		return nil, false, nil
	}

	connections, err = ParseVNICConnections(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, false, err
	}
	return connections, true, nil
}

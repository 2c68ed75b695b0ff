// Package connector implements the calls this service makes against a dataspace
// connector's management API and a provider's public data plane.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	apperrors "github.com/dsorch/orchestrator/internal/errors"
	"github.com/dsorch/orchestrator/internal/httpclient"
)

// Fixed values of the transfer initiation request.
const (
	ManagementContext   = "https://w3id.org/edc/connector/management/v0.0.1"
	Protocol            = "dataspace-protocol-http"
	DataDestinationType = "HttpProxy"
	TransferType        = "HttpData-PULL"
)

// ErrInvalidPayload indicates the connector answered successfully but the body
// is unusable (unparseable or missing a required field). It is not retried.
var ErrInvalidPayload = fmt.Errorf("invalid connector payload: %w", apperrors.ErrUpstreamProtocol)

// HTTPClient is the subset of *httpclient.Client the connector needs.
type HTTPClient interface {
	Get(ctx context.Context, url string, header http.Header) (*httpclient.Response, error)
	Post(ctx context.Context, url string, body any, header http.Header) (*httpclient.Response, error)
}

// TransferRequest describes one transfer to initiate on the consumer connector.
type TransferRequest struct {
	CounterPartyAddress string
	ContractID          string
	ConnectorID         string
	AssetID             string
	Properties          map[string]any
}

// TransferProcess is the connector's answer to a transfer initiation or lookup.
type TransferProcess struct {
	ID    string `mapstructure:"@id"`
	State string `mapstructure:"state"`
	// Raw is the decoded response body as returned by the connector.
	Raw map[string]any `mapstructure:"-"`
}

// DataAddress is an endpoint data reference issued for a started transfer.
type DataAddress struct {
	Type          string `mapstructure:"@type"`
	Authorization string `mapstructure:"authorization"`
	AuthType      string `mapstructure:"authType"`
	Endpoint      string `mapstructure:"endpoint"`
	EndpointType  string `mapstructure:"endpointType"`
	// Raw is the decoded response body as returned by the connector.
	Raw map[string]any `mapstructure:"-"`
}

// Payload is content downloaded from a provider data plane.
type Payload struct {
	MediaType string
	Body      []byte
}

// Client talks to the consumer connector's management API.
type Client struct {
	httpClient     HTTPClient
	managementURL  string
	managementPath string
	apiKey         string
}

// NewClient creates a connector client. managementURL is the full management API base of the
// configured connector; managementPath is reused for live lookups against caller-supplied hosts.
func NewClient(httpClient HTTPClient, managementURL, managementPath, apiKey string) *Client {
	return &Client{
		httpClient:     httpClient,
		managementURL:  strings.TrimSuffix(managementURL, "/"),
		managementPath: "/" + strings.Trim(managementPath, "/"),
		apiKey:         apiKey,
	}
}

// InitiateTransfer starts a transfer process and returns the connector-assigned id.
func (c *Client) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferProcess, error) {
	body := map[string]any{
		"@context":            []string{ManagementContext},
		"counterPartyAddress": req.CounterPartyAddress,
		"contractId":          req.ContractID,
		"connectorId":         req.ConnectorID,
		"dataDestination": map[string]any{
			"type": DataDestinationType,
		},
		"protocol":     Protocol,
		"transferType": TransferType,
	}
	if req.AssetID != "" {
		body["assetId"] = req.AssetID
	}
	if len(req.Properties) > 0 {
		body["properties"] = req.Properties
	}

	resp, err := c.httpClient.Post(ctx, c.managementURL+"/transferprocesses", body, c.header())
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	process, err := decodeTransferProcess(resp)
	if err != nil {
		return nil, err
	}
	if process.ID == "" {
		return nil, invalidPayload(resp, "connector response is missing the transfer process @id")
	}

	return process, nil
}

// GetDataAddress fetches the endpoint data reference of a transfer.
// Transport failures and non-2xx answers are returned as-is so callers can retry them;
// a successful answer without an authorization credential yields ErrInvalidPayload.
func (c *Client) GetDataAddress(ctx context.Context, transferID string) (*DataAddress, error) {
	endpoint := fmt.Sprintf("%s/edrs/%s/dataaddress", c.managementURL, url.PathEscape(transferID))

	resp, err := c.httpClient.Get(ctx, endpoint, c.header())
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	raw, err := decodeObject(resp)
	if err != nil {
		return nil, err
	}

	address := &DataAddress{Raw: raw}
	if err := mapstructure.Decode(raw, address); err != nil {
		return nil, invalidPayload(resp, fmt.Sprintf("connector returned a malformed data address: %v", err))
	}
	if address.Authorization == "" {
		return nil, invalidPayload(resp, "data address is missing the authorization credential")
	}

	return address, nil
}

// Download retrieves the payload behind a data address endpoint.
func (c *Client) Download(ctx context.Context, endpoint, authorization string) (*Payload, error) {
	// The endpoint comes from the connector, so an unusable one is the connector's fault.
	if u, err := url.Parse(endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: data address endpoint %q is not an absolute http(s) URL", ErrInvalidPayload, endpoint)
	}

	header := http.Header{}
	header.Set("Authorization", authorization)

	resp, err := c.httpClient.Get(ctx, endpoint, header)
	if errors.Is(err, apperrors.ErrInvalidInput) {
		return nil, fmt.Errorf("%w: data address endpoint: %v", ErrInvalidPayload, err)
	}
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	return &Payload{MediaType: resp.MediaType(), Body: resp.Body}, nil
}

// GetTransferProcess looks up a transfer's live state on the connector reachable at host.
func (c *Client) GetTransferProcess(ctx context.Context, host, transferID string) (*TransferProcess, error) {
	endpoint := fmt.Sprintf(
		"http://%s%s/transferprocesses/%s",
		host,
		c.managementPath,
		url.PathEscape(transferID),
	)

	resp, err := c.httpClient.Get(ctx, endpoint, c.header())
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	return decodeTransferProcess(resp)
}

func (c *Client) header() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Api-Key", c.apiKey)
	return header
}

func decodeTransferProcess(resp *httpclient.Response) (*TransferProcess, error) {
	raw, err := decodeObject(resp)
	if err != nil {
		return nil, err
	}

	process := &TransferProcess{Raw: raw}
	if err := mapstructure.Decode(raw, process); err != nil {
		return nil, invalidPayload(resp, fmt.Sprintf("connector returned a malformed transfer process: %v", err))
	}
	return process, nil
}

func decodeObject(resp *httpclient.Response) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(resp.Body, &raw); err != nil || raw == nil {
		return nil, invalidPayload(resp, "connector returned a body that is not a JSON object")
	}
	return raw, nil
}

func invalidPayload(resp *httpclient.Response, message string) error {
	return fmt.Errorf("%w: %w", ErrInvalidPayload, &apperrors.UpstreamError{
		StatusCode: resp.StatusCode,
		Body:       string(resp.Body),
		Message:    message,
	})
}

// IsRetryable reports whether a data address failure may succeed on a later attempt.
func IsRetryable(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalidPayload)
}

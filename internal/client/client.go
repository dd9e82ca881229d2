package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/criteo/code-id-registry/internal/apierrors"
	"github.com/criteo/code-id-registry/internal/models"
)

// APIPath prefixes every route of the registry server
const APIPath = "/api/v1"

// Client wraps HTTP client for registry API calls
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Verbose    bool
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Code       apierrors.ErrorCode
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new API client
func NewClient(baseURL, token string, timeout time.Duration, verbose bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Verbose: verbose,
	}
}

// doRequest executes an HTTP request with authentication
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	target := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	// Add Basic Auth if token is provided
	if c.Token != "" {
		req.Header.Set("Authorization", "Basic "+c.Token)
	}

	if c.Verbose {
		fmt.Fprintf(os.Stderr, "[DEBUG] %s %s\n", method, target)
	}

	return c.HTTPClient.Do(req)
}

// call sends a request and decodes a 2xx JSON body into out, when out is
// not nil. Other statuses become an *APIError.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body apierrors.ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Error.Code != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
		apiErr.Details = body.Error.Details
		return apiErr
	}

	apiErr.Message = string(bytes.TrimSpace(data))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Whoami returns the username the server authenticated
func (c *Client) Whoami(ctx context.Context) (string, error) {
	var resp struct {
		Username string `json:"username"`
	}
	if err := c.call(ctx, http.MethodGet, APIPath+"/whoami", nil, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// Register records a code ID
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.Registration, error) {
	var resp models.GetRegistrationResponse
	if err := c.call(ctx, http.MethodPost, APIPath+"/registrations", req, &resp); err != nil {
		return nil, err
	}
	return resp.Registration, nil
}

// Unregister removes a registration from both indices
func (c *Client) Unregister(ctx context.Context, req models.UnregisterRequest) error {
	return c.call(ctx, http.MethodDelete, APIPath+"/registrations", req, nil)
}

// GetRegistration returns one version, or the latest when version is nil
func (c *Client) GetRegistration(ctx context.Context, contractName, chainID string, version *string) (*models.Registration, error) {
	path := registrationsPath(contractName, chainID) + "/latest"
	if version != nil {
		path += "?version=" + url.QueryEscape(*version)
	}
	var resp models.GetRegistrationResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Registration, nil
}

// ListRegistrations returns every version registered for (contract name, chain)
func (c *Client) ListRegistrations(ctx context.Context, contractName, chainID string) ([]*models.Registration, error) {
	var resp models.ListRegistrationsResponse
	if err := c.call(ctx, http.MethodGet, registrationsPath(contractName, chainID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Registrations, nil
}

// GetCodeID returns the registration bound to (chain, code ID)
func (c *Client) GetCodeID(ctx context.Context, chainID string, codeID uint64) (*models.Registration, error) {
	path := APIPath + "/code-ids/" + url.PathEscape(chainID) + "/" + strconv.FormatUint(codeID, 10)
	var resp models.GetRegistrationResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Registration, nil
}

// Admin returns the current admin identity
func (c *Client) Admin(ctx context.Context) (string, error) {
	var resp models.AdminResponse
	if err := c.call(ctx, http.MethodGet, APIPath+"/admin", nil, &resp); err != nil {
		return "", err
	}
	return resp.Admin, nil
}

// Info returns the contract name and version that instantiated the registry
func (c *Client) Info(ctx context.Context) (*models.ContractInfo, error) {
	var info models.ContractInfo
	if err := c.call(ctx, http.MethodGet, APIPath+"/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateAdmin transfers the admin role
func (c *Client) UpdateAdmin(ctx context.Context, newAdmin string) error {
	return c.call(ctx, http.MethodPut, APIPath+"/admin", models.UpdateAdminRequest{Admin: newAdmin}, nil)
}

func registrationsPath(contractName, chainID string) string {
	return APIPath + "/registrations/" + url.PathEscape(contractName) + "/" + url.PathEscape(chainID)
}

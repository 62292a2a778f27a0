// Package manheim implements the valuation provider against the Manheim
// Valuations API. It owns OAuth token refresh and the wire decode; the
// rest of the bot only sees valuation.Record, valuation.ErrNotFound, or
// a *valuation.ProviderError.
package manheim

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// API environments.
const (
	ProdBaseURL = "https://api.manheim.com"
	UATBaseURL  = "https://uat.api.manheim.com"
)

// Tokens are refreshed this long before their reported expiry.
const tokenSafetyMargin = 5 * time.Minute

// Client is the Manheim Valuations API client.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a client for the given environment base URL.
func NewClient(clientID, clientSecret, baseURL string, timeout time.Duration) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ByVIN looks up valuations for a VIN, optionally narrowed by subseries
// and transmission path segments.
func (c *Client) ByVIN(req valuation.VINRequest) (*valuation.Record, error) {
	u := c.baseURL + "/valuations/vin/" + url.PathEscape(req.VIN)
	if req.Subseries != "" {
		u += "/" + url.PathEscape(req.Subseries)
		if req.Transmission != "" {
			u += "/" + url.PathEscape(req.Transmission)
		}
	}
	return c.fetch(u, req.Filters)
}

// ByYMM looks up valuations for a Year/Make/Model.
func (c *Client) ByYMM(req valuation.YMMRequest) (*valuation.Record, error) {
	u := fmt.Sprintf("%s/valuations/years/%d/makes/%s/models/%s",
		c.baseURL, req.Year, url.PathEscape(req.Make), url.PathEscape(req.Model))
	return c.fetch(u, req.Filters)
}

func (c *Client) fetch(rawURL string, filters valuation.Filters) (*valuation.Record, error) {
	token, err := c.token()
	if err != nil {
		return nil, &valuation.ProviderError{Op: "oauth token", Err: err}
	}

	if params := queryParams(filters); len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	httpReq, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &valuation.ProviderError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &valuation.ProviderError{Op: "valuations request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &valuation.ProviderError{Op: "read response", Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, valuation.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &valuation.ProviderError{
			Op:  "valuations request",
			Err: fmt.Errorf("non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400)),
		}
	}

	var wire wireRecord
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &valuation.ProviderError{
			Op:  "parse response",
			Err: fmt.Errorf("malformed body: %s", truncate(string(body), 400)),
		}
	}
	return wire.toRecord(), nil
}

// token returns a cached OAuth access token, refreshing it via the
// client-credentials grant when missing or near expiry.
func (c *Client) token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.accessToken != "" && now.Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	resp, err := c.httpClient.Post(
		c.baseURL+"/oauth2/token",
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("manheim token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("manheim token non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse token response: %s", truncate(string(body), 400))
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("manheim token response missing access_token")
	}
	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	c.accessToken = parsed.AccessToken
	c.tokenExpiry = now.Add(time.Duration(expiresIn)*time.Second - tokenSafetyMargin)
	return c.accessToken, nil
}

func queryParams(f valuation.Filters) url.Values {
	params := url.Values{}
	if f.Color != "" {
		params.Set("color", f.Color)
	}
	if f.Grade != nil {
		params.Set("grade", strconv.FormatFloat(*f.Grade, 'f', -1, 64))
	}
	if f.Odometer != nil {
		params.Set("odometer", strconv.Itoa(*f.Odometer))
	}
	if f.Region != "" {
		params.Set("region", f.Region)
	}
	if f.Date != "" {
		params.Set("date", f.Date)
	}
	return params
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

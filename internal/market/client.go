package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Signer authenticates mutating requests on behalf of the bot account.
type Signer interface {
	Address() string
	PubKeyHex() string
	Sign(msg []byte) ([]byte, error)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Signer  Signer
}

func New(baseURL string, timeout time.Duration, signer Signer) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: timeout,
		},
		Signer: signer,
	}
}

func (c *Client) ListActiveListings(ctx context.Context) ([]RawListing, error) {
	var listings []RawListing
	if err := c.fetchJSON(ctx, "/v1/listings", &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (c *Client) ResolveAccount(ctx context.Context, id string) (Account, error) {
	var account Account
	if err := c.fetchJSON(ctx, "/v1/accounts/"+url.PathEscape(id), &account); err != nil {
		return Account{}, err
	}
	if strings.TrimSpace(account.ID) == "" && strings.TrimSpace(account.Name) == "" {
		return Account{}, fmt.Errorf("account %s not found", id)
	}
	return account, nil
}

func (c *Client) DefaultItemProvider(ctx context.Context) (Provider, error) {
	var provider Provider
	if err := c.fetchJSON(ctx, "/v1/providers/default", &provider); err != nil {
		return Provider{}, err
	}
	if strings.TrimSpace(provider.ID) == "" {
		return Provider{}, fmt.Errorf("no default item provider available")
	}
	return provider, nil
}

func (c *Client) CreateListing(ctx context.Context, req CreateListingRequest) (*Listing, error) {
	return c.postListing(ctx, "/v1/listings", req, req.IdempotencyKey)
}

func (c *Client) CreateListingWithDuration(ctx context.Context, req SafeListingRequest) (*Listing, error) {
	return c.postListing(ctx, "/v1/listings/safe", req, req.IdempotencyKey)
}

func (c *Client) postListing(ctx context.Context, path string, payload any, idempotencyKey string) (*Listing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		httpReq.Header.Set("Idempotency-Key", key)
	}
	if err := c.sign(httpReq, body); err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var listing Listing
	if err := json.Unmarshal(trimmed, &listing); err != nil {
		return nil, err
	}
	if listing.ID == 0 {
		return nil, nil
	}
	return &listing, nil
}

func (c *Client) sign(req *http.Request, body []byte) error {
	if c.Signer == nil {
		return nil
	}
	sig, err := c.Signer.Sign(body)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("X-Bot-Address", c.Signer.Address())
	req.Header.Set("X-Bot-PubKey", c.Signer.PubKeyHex())
	req.Header.Set("X-Bot-Signature", fmt.Sprintf("%x", sig))
	return nil
}

func (c *Client) fetchJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	msg := "marketplace request failed"
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		trimmed := strings.TrimSpace(string(body))
		if trimmed != "" {
			msg = fmt.Sprintf("%s: %s", msg, trimmed)
		}
	}
	return fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
}

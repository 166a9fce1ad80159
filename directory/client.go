package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"secure-courier/common"
	"secure-courier/configs"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/protocol/handshake"

	"github.com/google/uuid"
)

var (
	ErrUnexpectedStatus = errors.New("directory returned non-OK status")
)

// Client talks to the directory service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mutex       sync.RWMutex
	signingKeys map[uuid.UUID]key_ed25519.PublicKey
}

// NewClient targets the directory at address (host:port).
func NewClient(address string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     "http://" + address,
		httpClient:  httpClient,
		signingKeys: make(map[uuid.UUID]key_ed25519.PublicKey),
	}
}

// PublishPublicKeys uploads the user's handshake bundle.
func (c *Client) PublishPublicKeys(ctx context.Context, req common.PublishRequest) error {
	url := fmt.Sprintf("%s%s/%s", c.baseURL, configs.PublishKeysPath, req.UserID)
	return c.do(ctx, http.MethodPost, url, req, nil)
}

// FetchPublicKeys downloads a user's bundle. The directory hands out (and
// retires) one one-time prekey per fetch.
func (c *Client) FetchPublicKeys(ctx context.Context, userID uuid.UUID) (*handshake.Bundle, error) {
	url := fmt.Sprintf("%s%s/%s", c.baseURL, configs.PublishKeysPath, userID)

	var bundle handshake.Bundle
	if err := c.do(ctx, http.MethodGet, url, nil, &bundle); err != nil {
		return nil, err
	}
	if err := bundle.Verify(); err != nil {
		return nil, fmt.Errorf("bundle of user %s: %w", userID, err)
	}

	c.cacheSigningKey(userID, bundle.SigningKey)
	return &bundle, nil
}

// SigningKey returns a user's public signing key without consuming prekeys.
func (c *Client) SigningKey(ctx context.Context, userID uuid.UUID) (key_ed25519.PublicKey, error) {
	c.mutex.RLock()
	key, ok := c.signingKeys[userID]
	c.mutex.RUnlock()
	if ok {
		return key, nil
	}

	url := fmt.Sprintf("%s%s/%s/signing-key", c.baseURL, configs.PublishKeysPath, userID)
	var resp common.SigningKeyResponse
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}

	key = resp.SigningKey
	if _, err := key.ToPoint(); err != nil {
		return nil, err
	}
	c.cacheSigningKey(userID, key)
	return key, nil
}

// VerifyDevice asks the directory to send a verification code to the device.
func (c *Client) VerifyDevice(ctx context.Context, deviceID uuid.UUID) (bool, error) {
	url := fmt.Sprintf("%s%s/%s/verify", c.baseURL, configs.VerifyPath, deviceID)

	var resp common.VerifyDeviceResponse
	if err := c.do(ctx, http.MethodPost, url, nil, &resp); err != nil {
		return false, err
	}
	return resp.VerificationPending, nil
}

func (c *Client) cacheSigningKey(userID uuid.UUID, key key_ed25519.PublicKey) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.signingKeys[userID] = key
}

func (c *Client) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

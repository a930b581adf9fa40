// Package assets is the HTTP client for the media-asset service: the
// upload/thumbnail pipeline that owns the project's live asset set. This
// service never creates or deletes assets; it only reads them to reconcile
// session references.
package assets

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// AssetRecord is the asset service's wire shape. file_size, duration_ms and
// hash are pointers: null means the pipeline has not derived the value yet,
// which is distinct from a real zero.
type AssetRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	FileSize     *int64    `json:"file_size"`
	DurationMS   *int64    `json:"duration_ms"`
	Hash         *string   `json:"hash"`
	StoragePath  string    `json:"storage_path"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListAssetsResponse struct {
	Assets []AssetRecord `json:"assets"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) ListAssets(projectID string) ([]AssetRecord, error) {
	url := strings.TrimSuffix(c.baseURL, "/") + "/projects/" + projectID + "/assets"
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to list assets: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result ListAssetsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Assets, nil
}

func (c *Client) GetAsset(projectID, assetID string) (*AssetRecord, error) {
	url := strings.TrimSuffix(c.baseURL, "/") + "/projects/" + projectID + "/assets/" + assetID
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get asset: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result AssetRecord
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// RetryWithBackoff executes a function with exponential backoff retry logic
func (c *Client) RetryWithBackoff(fn func() error, maxRetries int) error {
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if i < len(backoffs) {
			time.Sleep(backoffs[i])
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

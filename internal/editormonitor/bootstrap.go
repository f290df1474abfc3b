package editormonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Bootstrap is what the server hands the monitor for one item
type Bootstrap struct {
	Enforced            bool   `json:"enforced"`
	MissingImageMessage string `json:"missing_image_message"`
	TooSmallMessage     string `json:"too_small_message"`
	MinWidth            int    `json:"min_width"`
	MinHeight           int    `json:"min_height"`
}

// FetchBootstrap loads the bootstrap payload of an item from the API
func FetchBootstrap(ctx context.Context, client *http.Client, baseURL, itemID, token string) (Bootstrap, error) {
	if client == nil {
		client = http.DefaultClient
	}

	endpoint, err := url.JoinPath(baseURL, "api", "v1", "items", itemID, "editor-bootstrap")
	if err != nil {
		return Bootstrap{}, fmt.Errorf("invalid server url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Bootstrap{}, fmt.Errorf("build bootstrap request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Bootstrap{}, fmt.Errorf("fetch bootstrap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Bootstrap{}, fmt.Errorf("fetch bootstrap: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Data Bootstrap `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Bootstrap{}, fmt.Errorf("decode bootstrap: %w", err)
	}
	return envelope.Data, nil
}

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

// nodeClient is a thin HTTP client for the client subcommands. It reads the
// node URL and caller account from the environment so a local .env is enough
// to drive a dev node.
type nodeClient struct {
	baseURL string
	account string
	http    *http.Client
}

func newNodeClient() (*nodeClient, error) {
	// Load .env file if exists
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	baseURL := os.Getenv("RAVEN_NODE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &nodeClient{
		baseURL: baseURL,
		account: os.Getenv("RAVEN_ACCOUNT"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// do sends a request with the caller account header and decodes the JSON
// response into out. Non-2xx responses are surfaced with the node's error
// message.
func (c *nodeClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.account != "" {
		req.Header.Set("X-Raven-Account", c.account)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		var nodeErr struct {
			Error     string `json:"error"`
			Retryable bool   `json:"retryable"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&nodeErr); decodeErr == nil && nodeErr.Error != "" {
			return fmt.Errorf("node returned %d: %s (retryable=%v)", resp.StatusCode, nodeErr.Error, nodeErr.Retryable)
		}
		return fmt.Errorf("node returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client calls the Generative Language API's Imagen predict endpoint.
type Client struct {
	APIKey  string
	BaseURL string
	Model   string
	http    *http.Client
}

func New(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if model == "" {
		model = "imagen-3.0-generate-002"
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("missing GOOGLE_API_KEY")
	}
	payload := map[string]any{
		"instances":  []map[string]string{{"prompt": prompt}},
		"parameters": map[string]any{"sampleCount": 1},
	}
	b, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/v1beta/models/%s:predict?key=%s", c.BaseURL, c.Model, c.APIKey)
	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("imagen status %d", resp.StatusCode)
	}
	var out struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
		} `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Predictions) == 0 || out.Predictions[0].BytesBase64Encoded == "" {
		return "", errors.New("no image in response")
	}
	return "data:image/png;base64," + out.Predictions[0].BytesBase64Encoded, nil
}

// Package recall drives the meeting-capture bot lifecycle: a bot joins the
// call, records per-participant media, and streams events to our ingest
// endpoint over a realtime websocket.
package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the bot provider's REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the region-derived API base, used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a bot API client for the given region (e.g. "us-east-1").
func NewClient(apiKey, region string, opts ...Option) *Client {
	if region == "" {
		region = "us-east-1"
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    fmt.Sprintf("https://%s.recall.ai/api/v1", region),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartBot sends a bot into the meeting, configured to stream separate
// per-participant audio and video plus diarized transcripts to receiverURL.
// Returns the provider's bot id.
func (c *Client) StartBot(ctx context.Context, meetingURL, receiverURL string) (string, error) {
	payload := map[string]any{
		"meeting_url": meetingURL,
		"recording_config": map[string]any{
			"video_mixed_layout": "gallery_view_v2",
			"video_separate_png": map[string]any{},
			"audio_separate_raw": map[string]any{},
			"transcript": map[string]any{
				"provider":    map[string]any{"recallai_streaming": map[string]any{}},
				"diarization": map[string]any{"use_separate_streams_when_available": true},
			},
			"realtime_endpoints": []map[string]any{
				{
					"type": "websocket",
					"url":  receiverURL,
					"events": []string{
						"video_separate_png.data",
						"audio_separate_raw.data",
						"transcript.data",
						"transcript.partial_data",
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal bot payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bot", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create bot request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("start bot: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("start bot: status %d: %s", resp.StatusCode, string(data))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode bot response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("bot response missing id")
	}
	return out.ID, nil
}

// StopBot tells the bot to leave the call.
func (c *Client) StopBot(ctx context.Context, botID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/bot/%s/leave/", c.baseURL, botID), nil)
	if err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stop bot %s: %w", botID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stop bot %s: status %d: %s", botID, resp.StatusCode, string(data))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)
}

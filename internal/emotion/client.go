package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const defaultBaseURL = "https://api.hume.ai/v0"

// ProsodyModels is the model config for audio clips: one prediction per
// utterance, transcript included.
func ProsodyModels() map[string]any {
	return map[string]any{"prosody": map[string]any{"granularity": "utterance"}}
}

// FaceModels is the model config for video clips.
func FaceModels() map[string]any {
	return map[string]any{"face": map[string]any{"fps_pred": 3}}
}

// Client drives the batch inference API: upload a media file to start a job,
// poll until the job reaches a terminal state, then fetch predictions.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// WithPollInterval overrides the job polling cadence.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates an inference client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      defaultBaseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartJob uploads the clip with its model config and returns the job ID.
func (c *Client) StartJob(ctx context.Context, clipPath string, models map[string]any) (string, error) {
	f, err := os.Open(clipPath)
	if err != nil {
		return "", fmt.Errorf("open clip %s: %w", clipPath, err)
	}
	defer func() { _ = f.Close() }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(clipPath))
	if err != nil {
		return "", fmt.Errorf("create multipart file field: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy clip into request: %w", err)
	}

	// The API expects a "json" form field holding a JSON-encoded string.
	modelJSON, err := json.Marshal(map[string]any{"models": models})
	if err != nil {
		return "", fmt.Errorf("marshal model config: %w", err)
	}
	if err := mw.WriteField("json", string(modelJSON)); err != nil {
		return "", fmt.Errorf("write model config field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/batch/jobs", &body)
	if err != nil {
		return "", fmt.Errorf("build start job request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Hume-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("start job: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("start job: unexpected status %s", resp.Status)
	}

	var parsed struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode start job response: %w", err)
	}
	if parsed.JobID == "" {
		return "", fmt.Errorf("start job: response missing job_id")
	}

	return parsed.JobID, nil
}

// WaitJob polls the job until it reports COMPLETED or FAILED, or the context
// expires. The context deadline is the job timeout.
func (c *Client) WaitJob(ctx context.Context, jobID string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		state, err := c.jobState(ctx, jobID)
		if err != nil {
			return "", err
		}
		if state == "COMPLETED" || state == "FAILED" {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("wait job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) jobState(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/batch/jobs/"+jobID, nil)
	if err != nil {
		return "", fmt.Errorf("build job status request: %w", err)
	}
	req.Header.Set("X-Hume-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get job status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("get job status: unexpected status %s", resp.Status)
	}

	var parsed struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode job status: %w", err)
	}
	return parsed.State, nil
}

// Predictions fetches the raw predictions document for a completed job.
func (c *Client) Predictions(ctx context.Context, jobID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/batch/jobs/"+jobID+"/predictions", nil)
	if err != nil {
		return nil, fmt.Errorf("build predictions request: %w", err)
	}
	req.Header.Set("X-Hume-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get predictions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get predictions: unexpected status %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read predictions body: %w", err)
	}
	return payload, nil
}

// ProcessClip runs the full job lifecycle for one clip and returns the raw
// predictions document.
func (c *Client) ProcessClip(ctx context.Context, clipPath string, models map[string]any) (json.RawMessage, error) {
	jobID, err := c.StartJob(ctx, clipPath, models)
	if err != nil {
		return nil, err
	}

	state, err := c.WaitJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if state != "COMPLETED" {
		return nil, fmt.Errorf("inference job %s failed", jobID)
	}

	return c.Predictions(ctx, jobID)
}

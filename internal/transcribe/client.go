package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Client implements Service against a FunASR-style HTTP inference server.
// One request carries the whole session as a WAV file plus the ASR options as
// form fields. Failures are terminal: the pipeline never retries a task.
type Client struct {
	config     ClientConfig
	httpClient *http.Client

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration
	active          bool

	mu sync.RWMutex
}

// ClientConfig contains inference client configuration
type ClientConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// ClientStats represents inference client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	Active          bool          `json:"active"`
}

// serverResponse mirrors the inference server's wire format
type serverResponse struct {
	Success    bool    `json:"success"`
	Text       string  `json:"text"`
	RawText    string  `json:"raw_text"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// NewClient creates a new inference HTTP client
func NewClient(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        8,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// Initialize checks the inference server's health endpoint. The service must
// report success before the first Transcribe call.
func (c *Client) Initialize(ctx context.Context) error {
	healthURL, err := url.JoinPath(c.config.Endpoint, "health")
	if err != nil {
		return fmt.Errorf("invalid endpoint %s: %w", c.config.Endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference server unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server unhealthy: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var health struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}

	if !health.Success {
		return fmt.Errorf("inference server failed to initialize: %s", health.Error)
	}

	return nil
}

// Transcribe sends one session's WAV data for transcription.
func (c *Client) Transcribe(ctx context.Context, wavData []byte, opts Options) (*Response, error) {
	c.setActive(true)
	defer c.setActive(false)

	startTime := time.Now()
	c.incrementTotalRequests()

	body, contentType, err := c.createMultipartRequest(wavData, opts)
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	transcribeURL, err := url.JoinPath(c.config.Endpoint, "transcribe")
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("invalid endpoint %s: %w", c.config.Endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, transcribeURL, body)
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "Dictation-Service/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var serverResp serverResponse
	if err := json.Unmarshal(respBody, &serverResp); err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if !serverResp.Success {
		c.incrementFailedRequests()
		if serverResp.Error == "" {
			serverResp.Error = "unknown"
		}
		return nil, fmt.Errorf("inference failed: %s", serverResp.Error)
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))

	return &Response{
		Text:       serverResp.Text,
		RawText:    serverResp.RawText,
		Duration:   serverResp.Duration,
		Confidence: serverResp.Confidence,
	}, nil
}

// createMultipartRequest creates a multipart/form-data request body
func (c *Client) createMultipartRequest(wavData []byte, opts Options) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "session.wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := fileWriter.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"use_vad":            strconv.FormatBool(opts.UseVAD),
		"use_punc":           strconv.FormatBool(opts.UsePunc),
		"batch_size_seconds": fmt.Sprintf("%.1f", opts.BatchSizeSeconds),
	}
	if opts.Hotword != "" {
		fields["hotword"] = opts.Hotword
	}
	if opts.Language != "" {
		fields["language"] = opts.Language
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

func (c *Client) setActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = active
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		Active:          c.active,
	}
}

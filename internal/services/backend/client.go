package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/killallgit/sttclient/internal/models"
	apperrors "github.com/killallgit/sttclient/pkg/errors"
	"golang.org/x/time/rate"
)

var (
	// ErrStopped indicates the observer asked Transcribe to stop polling
	ErrStopped = errors.New("transcription polling stopped")
)

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 16 << 20

// Config holds configuration for the backend client
type Config struct {
	BaseURL   string
	Token     string // optional bearer token
	UserAgent string

	Timeout      time.Duration // Default: 60s, applied to every request
	PollInterval time.Duration // Default: 2s

	// Rate limiting
	RequestsPerSecond int // Default: 10
	BurstSize         int // Default: 5

	HTTPClient *http.Client // for testing
}

// Client handles communication with the speech-to-text backend
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	config      Config
	baseURL     string

	metrics *clientMetrics
}

// clientMetrics tracks client usage statistics
type clientMetrics struct {
	requests atomic.Int64
	errors   atomic.Int64
	polls    atomic.Int64
	uploads  atomic.Int64
}

// NewClient creates a new backend client
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 5
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sttclient/1.0"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		config:      cfg,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		metrics:     &clientMetrics{},
	}
}

// Health checks the backend status
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	var info HealthInfo
	if err := c.do(ctx, http.MethodGet, "/health", nil, "", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListModels fetches the backend model catalog
func (c *Client) ListModels(ctx context.Context) ([]ModelSummary, error) {
	var payload modelsPayload
	if err := c.do(ctx, http.MethodGet, "/models", nil, "", &payload); err != nil {
		return nil, err
	}
	return payload.Models, nil
}

// StartTranscription uploads the audio file and starts a backend task
func (c *Client) StartTranscription(ctx context.Context, req *TranscribeRequest) (*StartResponse, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.KindFile, "opening audio file %s", req.FilePath)
	}
	defer file.Close()

	options, err := json.Marshal(req.Options)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindAPI, "encoding transcription options")
	}

	// Stream the multipart body instead of buffering the whole file
	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeTranscribeForm(mw, file, filepath.Base(req.FilePath), req.Model, options))
	}()

	c.metrics.uploads.Add(1)
	var out StartResponse
	if err := c.do(ctx, http.MethodPost, "/transcribe", pr, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	if out.TaskID == "" {
		return nil, apperrors.API("backend did not return a task id")
	}
	return &out, nil
}

func writeTranscribeForm(mw *multipart.Writer, file io.Reader, name, model string, options []byte) error {
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := mw.WriteField("model", model); err != nil {
		return err
	}
	if err := mw.WriteField("options", string(options)); err != nil {
		return err
	}
	return mw.Close()
}

// PollStatus fetches the current status of a backend task
func (c *Client) PollStatus(ctx context.Context, taskID string) (*StatusResponse, error) {
	c.metrics.polls.Add(1)
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/transcribe/"+url.PathEscape(taskID), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchResult fetches the result of a backend task
func (c *Client) FetchResult(ctx context.Context, taskID string) (*ResultResponse, error) {
	var out ResultResponse
	if err := c.do(ctx, http.MethodGet, "/transcribe/"+url.PathEscape(taskID)+"/result", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetActiveModel tells the backend which model to use
func (c *Client) SetActiveModel(ctx context.Context, name string) error {
	body, err := json.Marshal(selectModelRequest{Model: name})
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindAPI, "encoding model selection")
	}
	var ack json.RawMessage
	return c.do(ctx, http.MethodPost, "/models/active", bytes.NewReader(body), "application/json", &ack)
}

// Transcribe starts a task, polls it until the backend reports a terminal
// status and returns the fetched result
func (c *Client) Transcribe(ctx context.Context, req *TranscribeRequest, observer Observer) (*models.TranscriptionResult, error) {
	start, err := c.StartTranscription(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] Backend accepted %s as task %s (status %s)", req.FilePath, start.TaskID, start.Status)
	if observer != nil {
		observer.Accepted(start.TaskID, start)
	}

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		status, err := c.PollStatus(ctx, start.TaskID)
		if err != nil {
			return nil, err
		}
		if observer != nil && !observer.StatusChanged(status) {
			return nil, ErrStopped
		}

		switch status.TaskStatus() {
		case models.TaskStatusCompleted:
			return c.fetchCompleted(ctx, start.TaskID)
		case models.TaskStatusFailed:
			msg := status.ErrorMessage
			if msg == "" {
				msg = "transcription failed on backend"
			}
			return nil, apperrors.API(msg).WithDetail("task_id", start.TaskID)
		case models.TaskStatusCancelled:
			return nil, apperrors.APIf("backend cancelled task %s", start.TaskID)
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.KindAPI, "polling transcription status")
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchCompleted(ctx context.Context, taskID string) (*models.TranscriptionResult, error) {
	res, err := c.FetchResult(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if res.Result == nil {
		return nil, apperrors.APIf("backend returned no result for task %s", taskID)
	}
	return res.Result.ToResult(), nil
}

// do performs a single request and unwraps the response envelope into out
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.KindAPI, "rate limiter wait")
	}

	c.metrics.requests.Add(1)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindAPI, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.errors.Add(1)
		return apperrors.Wrapf(err, apperrors.KindAPI, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.errors.Add(1)
		return apperrors.Wrap(err, apperrors.KindAPI, "reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.errors.Add(1)
		log.Printf("[WARN] Backend returned status %d for %s %s", resp.StatusCode, method, path)
		return apperrors.APIf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))).
			WithDetail("status", resp.StatusCode)
	}

	if err := decodeEnvelope(raw, out); err != nil {
		c.metrics.errors.Add(1)
		return err
	}
	return nil
}

// decodeEnvelope applies the envelope rules and decodes data into out
func decodeEnvelope(raw []byte, out interface{}) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apperrors.Wrap(err, apperrors.KindAPI, "malformed response envelope")
	}

	if !env.Success {
		msg := env.Message
		appErr := apperrors.API("")
		if env.Error != nil {
			if env.Error.Message != "" {
				msg = env.Error.Message
			}
			if env.Error.Code != "" {
				appErr.WithDetail("code", env.Error.Code)
			}
			if env.Error.Details != nil {
				appErr.WithDetail("details", env.Error.Details)
			}
		}
		if msg == "" {
			msg = "unknown backend error"
		}
		appErr.Message = msg
		return appErr
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperrors.API("missing data")
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.Wrap(err, apperrors.KindAPI, fmt.Sprintf("decoding response data as %T", out))
	}
	return nil
}

// GetMetrics returns current client metrics
func (c *Client) GetMetrics() map[string]int64 {
	return map[string]int64{
		"requests": c.metrics.requests.Load(),
		"errors":   c.metrics.errors.Load(),
		"polls":    c.metrics.polls.Load(),
		"uploads":  c.metrics.uploads.Load(),
	}
}

// BaseURL returns the configured backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

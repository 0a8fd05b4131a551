package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"

	"go.uber.org/zap"
)

// APIClient handles communication with the backend API. Every call carries a
// bounded timeout; a timeout is reported as a failure and the caller's item
// stays queued.
type APIClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAPIClient creates a new API client.
func NewAPIClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// UpsertHourlyHealth writes one hourly health rollup. The backend upserts by
// hour bucket, so re-delivery after a lost response is idempotent.
func (c *APIClient) UpsertHourlyHealth(ctx context.Context, userID string, p models.HealthHourlyPayload) error {
	url := fmt.Sprintf("%s/api/v1/users/%s/health/hourly/%d", c.baseURL, userID, p.HourBucket.Unix())
	_, err := c.send(ctx, http.MethodPut, url, p)
	return err
}

// CreateSleepSession creates one sleep session record.
func (c *APIClient) CreateSleepSession(ctx context.Context, userID string, p models.SleepPayload) error {
	url := fmt.Sprintf("%s/api/v1/users/%s/sleep-sessions", c.baseURL, userID)
	_, err := c.send(ctx, http.MethodPost, url, p)
	return err
}

// CreateWorkoutSession creates one workout session record.
func (c *APIClient) CreateWorkoutSession(ctx context.Context, userID string, p models.WorkoutPayload) error {
	url := fmt.Sprintf("%s/api/v1/users/%s/workout-sessions", c.baseURL, userID)
	_, err := c.send(ctx, http.MethodPost, url, p)
	return err
}

// CreatePlace creates a place and returns the backend-assigned id.
func (c *APIClient) CreatePlace(ctx context.Context, userID string, p models.PlacePayload) (string, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s/places", c.baseURL, userID)
	body, err := c.send(ctx, http.MethodPost, url, p)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse place response: %w", err)
	}
	return result.ID, nil
}

// HealthCheck checks if the backend is reachable.
func (c *APIClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *APIClient) send(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("Request succeeded",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", duration),
		)
		return body, nil
	}

	errMsg := fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.Error("Authentication failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return nil, &AuthError{Message: errMsg, StatusCode: resp.StatusCode}
	case http.StatusTooManyRequests:
		c.logger.Warn("Rate limited",
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, &RateLimitError{Message: errMsg, StatusCode: resp.StatusCode}
	case http.StatusBadRequest:
		c.logger.Error("Invalid request",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return nil, &BadRequestError{Message: errMsg, StatusCode: resp.StatusCode}
	default:
		c.logger.Error("Backend error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return nil, &BackendError{Message: errMsg, StatusCode: resp.StatusCode}
	}
}

// Error types
type AuthError struct {
	Message    string
	StatusCode int
}

func (e *AuthError) Error() string {
	return e.Message
}

type RateLimitError struct {
	Message    string
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Message
}

type BadRequestError struct {
	Message    string
	StatusCode int
}

func (e *BadRequestError) Error() string {
	return e.Message
}

type BackendError struct {
	Message    string
	StatusCode int
}

func (e *BackendError) Error() string {
	return e.Message
}

package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

type httpClient struct {
	baseURL    string
	apiKey     string
	maxRetries int
	client     *http.Client
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewHTTPClient builds the production voice provider client. Requests carry
// a fixed timeout; network errors and 5xx responses are retried a bounded
// number of times with exponential backoff, 4xx responses fail immediately.
func NewHTTPClient(cfg config.VoiceConfig, log *zap.Logger, m *metrics.Metrics) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &httpClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout},
		log:        log.Named("voice.client"),
		metrics:    m,
	}
}

func (c *httpClient) CreateAssistant(ctx context.Context, params AssistantParams) (*Assistant, error) {
	var assistant Assistant
	if err := c.doRequest(ctx, http.MethodPost, "/assistant", params, &assistant, "create_assistant"); err != nil {
		return nil, err
	}
	return &assistant, nil
}

func (c *httpClient) UpdateAssistant(ctx context.Context, providerID string, params AssistantParams) error {
	return c.doRequest(ctx, http.MethodPatch, "/assistant/"+providerID, params, nil, "update_assistant")
}

func (c *httpClient) DeleteAssistant(ctx context.Context, providerID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/assistant/"+providerID, nil, nil, "delete_assistant")
}

func (c *httpClient) CreatePhoneNumber(ctx context.Context, params PhoneNumberParams) (*PhoneNumber, error) {
	var number PhoneNumber
	if err := c.doRequest(ctx, http.MethodPost, "/phone-number", params, &number, "create_phone_number"); err != nil {
		return nil, err
	}
	return &number, nil
}

func (c *httpClient) UpdatePhoneNumber(ctx context.Context, providerID string, assistantID string) error {
	payload := map[string]string{"assistantId": assistantID}
	return c.doRequest(ctx, http.MethodPatch, "/phone-number/"+providerID, payload, nil, "update_phone_number")
}

func (c *httpClient) DeletePhoneNumber(ctx context.Context, providerID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/phone-number/"+providerID, nil, nil, "delete_phone_number")
}

func (c *httpClient) doRequest(ctx context.Context, method, path string, payload any, out any, operation string) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return ErrNotConfigured
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = encoded
	}

	// One idempotency key for all attempts of this logical request, so a
	// create reissued after a timeout cannot double-provision.
	idempotencyKey := ""
	if method == http.MethodPost {
		idempotencyKey = uuid.NewString()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.ProviderRetries.Inc()
			}
			delay := backoffDelay(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.attempt(ctx, method, path, body, idempotencyKey, out)
		if err == nil {
			c.observe(operation, "ok")
			return nil
		}
		lastErr = err

		var provErr *ProviderError
		if errors.As(err, &provErr) && !provErr.Retryable() {
			c.observe(operation, "client_error")
			return err
		}
		if ctx.Err() != nil {
			c.observe(operation, "canceled")
			return lastErr
		}

		c.log.Warn("voice provider request failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	c.observe(operation, "error")
	return lastErr
}

func (c *httpClient) attempt(ctx context.Context, method, path string, body []byte, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		message := strings.TrimSpace(apiErr.Message)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}

func (c *httpClient) observe(operation, result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.ProviderRequests.WithLabelValues(operation, result).Inc()
}

func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(retryBaseDelay) * math.Pow(2, float64(attempt-1)))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

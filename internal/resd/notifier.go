package resd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hydronet-sim/reservoir-core/pkg/logger"
	"github.com/hydronet-sim/reservoir-core/pkg/models"
	"github.com/hydronet-sim/reservoir-core/pkg/utils"
)

var ErrInvalidWebhookURL = errors.New("invalid webhook url")

// Notification is the JSON payload posted to the webhook when a run
// reaches a terminal status. Results carry recorder aggregates only;
// consumers fetch the series over the API if they want it.
type Notification struct {
	RunID       string             `json:"run_id"`
	Status      models.RunStatus   `json:"status"`
	Title       string             `json:"title,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
	StartTime   time.Time          `json:"start_time,omitempty"`
	EndTime     time.Time          `json:"end_time,omitempty"`
	Error       string             `json:"error,omitempty"`
	Results     *models.RunResults `json:"results,omitempty"`
	SentAt      time.Time          `json:"sent_at"`
}

// Notifier delivers run-completion webhooks. Delivery is asynchronous and
// retried with backoff; a webhook that keeps failing is logged and dropped.
type Notifier struct {
	client     *http.Client
	backoff    utils.BackoffStrategy
	maxRetries int
}

func NewNotifier() *Notifier {
	return &Notifier{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff:    utils.NewExponentialBackoff(1*time.Second, 30*time.Second, 2.0, false),
		maxRetries: 3,
	}
}

// NewNotifierWithBackoff creates a notifier with an explicit retry strategy.
func NewNotifierWithBackoff(backoff utils.BackoffStrategy) *Notifier {
	n := NewNotifier()
	if backoff != nil {
		n.backoff = backoff
	}
	return n
}

// Notify posts the run's terminal state to the webhook URL. It returns
// immediately; delivery happens in a goroutine. A {run_id} placeholder in
// the URL is replaced with the run's id.
func (n *Notifier) Notify(webhookURL, secret string, run *models.Run) {
	if webhookURL == "" || run == nil {
		return
	}
	if err := validateWebhookURL(webhookURL); err != nil {
		logger.Warn("webhook skipped", "run_id", run.ID, "error", err)
		return
	}

	finalURL := strings.ReplaceAll(webhookURL, "{run_id}", run.ID)
	payload := Notification{
		RunID:       run.ID,
		Status:      run.Status,
		Title:       run.Title,
		SubmittedAt: run.SubmittedAt,
		StartTime:   run.StartTime,
		EndTime:     run.EndTime,
		Error:       run.Error,
		Results:     run.Results.WithoutSeries(),
		SentAt:      time.Now().UTC(),
	}

	go n.deliver(finalURL, secret, payload)
}

// deliver performs the HTTP POST with retries.
func (n *Notifier) deliver(webhookURL, secret string, payload Notification) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("marshaling webhook payload", "run_id", payload.RunID, "error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying webhook",
				"webhook_url", webhookURL,
				"run_id", payload.RunID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
		if err != nil {
			lastErr = fmt.Errorf("creating request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "reservoir-core/1.0")
		if secret != "" {
			req.Header.Set("X-Reservoir-Webhook-Secret", secret)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("posting webhook: %w", err)
			logger.Warn("webhook attempt failed",
				"webhook_url", webhookURL,
				"run_id", payload.RunID,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		snippet := string(respBody)
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("webhook delivered",
				"run_id", payload.RunID,
				"status", payload.Status,
				"status_code", resp.StatusCode)
			return
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("webhook returned non-2xx status",
			"webhook_url", webhookURL,
			"run_id", payload.RunID,
			"status_code", resp.StatusCode,
			"response_body", snippet,
			"attempt", attempt+1)
	}

	logger.Error("webhook delivery failed",
		"webhook_url", webhookURL,
		"run_id", payload.RunID,
		"status", payload.Status,
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}

// validateWebhookURL accepts absolute http or https URLs with a host.
func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhookURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidWebhookURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidWebhookURL)
	}
	return nil
}

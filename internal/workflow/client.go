// Package workflow запускает внешний workflow напоминаний о продлении.
// Workflow по расписанию вызывает обратно /api/v1/workflow/subscriptions/reminder.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
)

// CallbackPath путь обратного вызова относительно адреса сервиса.
const CallbackPath = "/api/v1/workflow/subscriptions/reminder"

// ErrDisabled возвращается New, если адрес обратного вызова не настроен.
var ErrDisabled = errors.New("workflow: server url is not configured")

// Client клиент API запуска workflow.
type Client struct {
	triggerURL string
	serverURL  string
	token      string
	http       *http.Client
}

type triggerRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

type triggerResponse struct {
	WorkflowRunID string `json:"workflowRunId"`
}

// New создает клиента. Пустой ServerURL отключает запуск workflow: возвращается ErrDisabled.
func New(cfg config.Workflow) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, ErrDisabled
	}
	if cfg.TriggerURL == "" {
		return nil, fmt.Errorf("workflow: trigger url is required when server url is set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		triggerURL: strings.TrimRight(cfg.TriggerURL, "/"),
		serverURL:  strings.TrimRight(cfg.ServerURL, "/"),
		token:      cfg.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// CallbackURL адрес, который вызовет workflow.
func (c *Client) CallbackURL() string {
	return c.serverURL + CallbackPath
}

// Trigger запускает workflow для подписки и возвращает идентификатор запуска.
func (c *Client) Trigger(ctx context.Context, subscriptionID string) (string, error) {
	const op = "workflow.Trigger"

	body, err := json.Marshal(triggerRequest{SubscriptionID: subscriptionID})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	url := c.triggerURL + "/v2/trigger/" + c.CallbackURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	return out.WorkflowRunID, nil
}

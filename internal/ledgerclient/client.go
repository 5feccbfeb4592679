package ledgerclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	defaultTimeout       = 10 * time.Second
)

// SignedEnvelope is the canonical message and its signature sent to the ledger.
type SignedEnvelope struct {
	RawMessage string `json:"rawMessage"`
	Signature  string `json:"signature"`
}

// ServiceError is a structured rejection returned by the ledger service.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ledger service: %s (status %d)", e.Message, e.Status)
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client talks to the ledger service over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fiber.Client
}

// New builds a client for the service rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &fiber.Client{UserAgent: "signed_send"},
	}
}

// Balance returns the balance held by address.
func (c *Client) Balance(ctx context.Context, address string) (int64, error) {
	timeout, err := c.requestTimeout(ctx)
	if err != nil {
		return 0, err
	}
	agent := c.http.Get(c.baseURL + "/balance/" + url.PathEscape(address)).Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, fmt.Errorf("get balance: %w", errors.Join(errs...))
	}
	return decodeBalance(code, body)
}

// Send submits a signed envelope and returns the sender's new balance. Each
// call carries a fresh Idempotency-Key; identical envelopes are distinct
// transfers since the message has no nonce.
func (c *Client) Send(ctx context.Context, envelope SignedEnvelope) (int64, error) {
	timeout, err := c.requestTimeout(ctx)
	if err != nil {
		return 0, err
	}
	agent := c.http.Post(c.baseURL+"/send").
		Set(idempotencyKeyHeader, uuid.NewString()).
		JSON(envelope).
		Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, fmt.Errorf("send: %w", errors.Join(errs...))
	}
	return decodeBalance(code, body)
}

func (c *Client) requestTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < c.timeout {
			if remaining <= 0 {
				return 0, context.DeadlineExceeded
			}
			return remaining, nil
		}
	}
	return c.timeout, nil
}

func decodeBalance(code int, body []byte) (int64, error) {
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return 0, serviceError(code, body)
	}
	var res balanceResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, fmt.Errorf("decode balance response: %w", err)
	}
	return res.Balance, nil
}

func serviceError(code int, body []byte) *ServiceError {
	var res errorResponse
	if err := json.Unmarshal(body, &res); err == nil && res.Message != "" {
		return &ServiceError{Status: code, Message: res.Message}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &ServiceError{Status: code, Message: msg}
}

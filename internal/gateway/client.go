// Package gateway implements the REST client for the print shop backend.
// It owns the wire contract only; state lives in the order store.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zafarze/ecoprint/internal/orders"
)

// HTTPError carries a non-2xx response, with the server-supplied message
// when one was parseable.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d: server error", e.StatusCode)
}

type Client struct {
	baseURL    string
	csrfToken  string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewClient(baseURL, csrfToken string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		csrfToken:  strings.TrimSpace(csrfToken),
		httpClient: httpClient,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

func (c *Client) FetchOrders(ctx context.Context, archived bool) ([]orders.Order, error) {
	var out []orders.Order
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/orders/?is_archived=%t", archived), nil, &out)
	return out, err
}

func (c *Client) FetchProducts(ctx context.Context) ([]orders.Product, error) {
	var out []orders.Product
	err := c.doJSON(ctx, http.MethodGet, "/api/products/", nil, &out)
	return out, err
}

func (c *Client) FetchUsers(ctx context.Context) ([]orders.User, error) {
	var out []orders.User
	err := c.doJSON(ctx, http.MethodGet, "/api/users/", nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, payload orders.OrderWrite) (orders.Order, error) {
	var out orders.Order
	err := c.doJSON(ctx, http.MethodPost, "/api/orders/", payload, &out)
	return out, err
}

func (c *Client) UpdateOrder(ctx context.Context, id int, payload orders.OrderWrite) (orders.Order, error) {
	var out orders.Order
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/orders/%d/", id), payload, &out)
	return out, err
}

func (c *Client) DeleteOrder(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/orders/%d/", id), nil, nil)
}

func (c *Client) ArchiveOrder(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/archive/", id), nil, nil)
}

func (c *Client) UnarchiveOrder(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/unarchive/", id), nil, nil)
}

func (c *Client) SyncSheets(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/sync-sheets/", nil, nil)
}

// doJSON performs one API call. GET requests are retried with backoff on
// transport errors and transient statuses; mutating requests are never
// retried, so their failure handling (rollback, notifications) fires
// exactly once.
func (c *Client) doJSON(ctx context.Context, method, requestPath string, body, out any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	retryable := method == http.MethodGet

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if method != http.MethodGet && c.csrfToken != "" {
			req.Header.Set("X-CSRFToken", c.csrfToken)
			req.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.csrfToken})
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if retryable && attempt < c.maxRetries {
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		payloadBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payloadBytes) == 0 {
				return nil
			}
			return json.Unmarshal(payloadBytes, out)
		}

		if retryable && attempt < c.maxRetries &&
			(resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)) {
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		return &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    serverErrorMessage(payloadBytes),
		}
	}
}

// serverErrorMessage digs the human-readable message out of an error
// body. The backend answers either {"error": ...} or DRF's {"detail": ...}.
func serverErrorMessage(payload []byte) string {
	var errPayload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(payload, &errPayload)
	if errPayload.Error != "" {
		return errPayload.Error
	}
	return errPayload.Detail
}

// retryDelay doubles the base delay per attempt, honoring a Retry-After
// header when present. Both paths clamp to maxDelay.
func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	maxDelay := c.maxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	delay := parseRetryAfter(retryAfterHeader)
	if delay <= 0 {
		delay = c.baseDelay
		if delay <= 0 {
			delay = 100 * time.Millisecond
		}
		for i := 1; i < attempt && delay < maxDelay; i++ {
			delay *= 2
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// parseRetryAfter accepts both forms the header allows: a second count or
// an HTTP date.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	ts, err := time.Parse(time.RFC1123, header)
	if err != nil {
		return 0
	}
	if delta := time.Until(ts); delta > 0 {
		return delta
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

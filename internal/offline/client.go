package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/tabletap/tabletap/internal/orders"
)

// ErrOffline marks a connectivity failure. Queued work stays put and the
// drain retries later; anything else is a server verdict and is final.
var ErrOffline = errors.New("server unreachable")

const heartbeatInterval = 5 * time.Minute

// Client is the device-side companion to the ordering API. It submits
// through the queue when the network is down and replays in order once
// connectivity returns.
type Client struct {
	baseURL string
	http    *http.Client
	queue   *Queue
	logger  apt.Logger
}

func NewClient(baseURL string, queue *Queue, logger apt.Logger) *Client {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		queue:   queue,
		logger:  logger,
	}
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e errorEnvelope) detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// SubmitOrder tries the server first. On connectivity failure the request is
// queued and ErrOffline returned; the caller shows a pending state. A server
// rejection is returned as-is and never queued.
func (c *Client) SubmitOrder(ctx context.Context, req orders.SubmitOrderRequest) (*orders.Order, error) {
	order, err := c.postOrder(ctx, req)
	if err == nil {
		return order, nil
	}
	if !isConnectivityErr(err) {
		return nil, err
	}

	entry := Entry{Request: req}
	if qErr := c.queue.Enqueue(entry); qErr != nil {
		c.logger.Error("cannot queue submission", "idempotency_key", req.IdempotencyKey, "error", qErr)
		return nil, qErr
	}

	c.logger.Info("submission queued for replay", "idempotency_key", req.IdempotencyKey)
	return nil, ErrOffline
}

func (c *Client) postOrder(ctx context.Context, req orders.SubmitOrderRequest) (*orders.Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("cannot encode submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: server returned %d", ErrOffline, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, decodeRejection(raw, resp.StatusCode)
	}

	var envelope struct {
		Data orders.Order `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("cannot decode order response: %w", err)
	}
	return &envelope.Data, nil
}

// decodeRejection rebuilds the typed domain error from the response detail.
// The service writes rejections as "kind: detail".
func decodeRejection(raw []byte, status int) error {
	var envelope errorEnvelope
	_ = json.Unmarshal(raw, &envelope)

	detail := envelope.detail()
	if detail == "" {
		return fmt.Errorf("server rejected request with status %d", status)
	}

	if kind, rest, found := strings.Cut(detail, ":"); found {
		trimmed := orders.Kind(strings.TrimSpace(kind))
		switch trimmed {
		case orders.KindInvalidTable, orders.KindSessionExpired, orders.KindNoActiveSession,
			orders.KindTableClosed, orders.KindInvalidItems, orders.KindPriceMismatch,
			orders.KindInvalidTransition, orders.KindOrderNotFound:
			return orders.NewError(trimmed, "%s", strings.TrimSpace(rest))
		}
	}

	return errors.New(detail)
}

func isConnectivityErr(err error) bool {
	if errors.Is(err, ErrOffline) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// RefreshSession sends a heartbeat. Connectivity failures are reported as
// ErrOffline; a heartbeat that answers success=false means the session is
// gone and the caller must create a new one.
func (c *Client) RefreshSession(ctx context.Context, sessionID string) (orders.RefreshResult, error) {
	url := fmt.Sprintf("%s/sessions/%s/refresh", c.baseURL, sessionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return orders.RefreshResult{}, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return orders.RefreshResult{}, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return orders.RefreshResult{}, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	if resp.StatusCode >= 400 {
		return orders.RefreshResult{}, fmt.Errorf("%w: server returned %d", ErrOffline, resp.StatusCode)
	}

	var envelope struct {
		Data orders.RefreshResult `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return orders.RefreshResult{}, fmt.Errorf("cannot decode refresh response: %w", err)
	}
	return envelope.Data, nil
}

// StartHeartbeat refreshes the session on a fixed cadence until ctx is
// cancelled. Missed beats are tolerated; the server keeps the session alive
// for the full TTL between successful refreshes.
func (c *Client) StartHeartbeat(ctx context.Context, sessionID string) {
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := c.RefreshSession(ctx, sessionID)
				if err != nil {
					c.logger.Debug("heartbeat skipped", "session_id", sessionID, "error", err)
					continue
				}
				if !result.Success {
					c.logger.Info("session no longer active", "session_id", sessionID, "reason", result.Error)
					return
				}
			}
		}
	}()
}

// Drain replays queued submissions in order. A connectivity failure stops
// the drain with the remaining entries intact. A server rejection removes
// the entry: replaying it again can never succeed, and keeping it would
// block everything behind it.
func (c *Client) Drain(ctx context.Context) (int, error) {
	replayed := 0
	for _, entry := range c.queue.Entries() {
		_, err := c.postOrder(ctx, entry.Request)
		if err != nil {
			if isConnectivityErr(err) {
				return replayed, ErrOffline
			}
			c.logger.Info("dropping rejected submission",
				"entry_id", entry.ID, "error", err)
			if rmErr := c.queue.Remove(entry.ID); rmErr != nil {
				return replayed, rmErr
			}
			continue
		}

		if rmErr := c.queue.Remove(entry.ID); rmErr != nil {
			return replayed, rmErr
		}
		replayed++
	}
	return replayed, nil
}

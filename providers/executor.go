package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/security"
	"github.com/storebridge/storebridge/utils"
)

// ExecutorClient delivers signed command envelopes to the Executor's receive
// endpoint. Every delivery is signed with a fresh timestamp and nonce; a resend
// is a new protocol exchange even when the command and idempotency key repeat.
type ExecutorClient struct {
	baseURL    string
	instanceID string
	secret     string
	httpClient *http.Client
	breaker    *utils.CircuitBreaker
	logger     *utils.Logger
}

func NewExecutorClient(baseURL, instanceID, secret string, timeout time.Duration) *ExecutorClient {
	return &ExecutorClient{
		baseURL:    baseURL,
		instanceID: instanceID,
		secret:     secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: utils.NewCircuitBreaker("executor", 5, 30*time.Second),
		logger:  utils.NewLogger("executor-client"),
	}
}

// Deliver posts one envelope and returns the Executor's acknowledgment along
// with the HTTP status. An error means no usable acknowledgment came back.
func (c *ExecutorClient) Deliver(ctx context.Context, env *models.CommandEnvelope) (*models.Acknowledgment, int, error) {
	rawBody, err := json.Marshal(env)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode envelope: %w", err)
	}

	var ack *models.Acknowledgment
	var status int

	err = c.breaker.Execute(ctx, func() error {
		nonce, err := security.GenerateNonce()
		if err != nil {
			return fmt.Errorf("failed to generate nonce: %w", err)
		}
		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		signature := security.Sign(c.secret, timestamp, nonce, rawBody)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/v1/commands/receive", bytes.NewReader(rawBody))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Instance-ID", c.instanceID)
		req.Header.Set("X-Timestamp", timestamp)
		req.Header.Set("X-Nonce", nonce)
		req.Header.Set("X-Signature", signature)
		req.Header.Set("X-Idempotency-Key", env.IdempotencyKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		var parsed models.Acknowledgment
		if err := json.Unmarshal(body, &parsed); err != nil || parsed.AckStatus == "" {
			return fmt.Errorf("executor returned %d with unreadable acknowledgment", status)
		}

		// Protocol-level rejections (bad signature, stale timestamp, replay)
		// arrive as non-2xx rejected acks. They are delivery failures for the
		// dispatcher, not entity outcomes.
		if status != http.StatusOK {
			return fmt.Errorf("executor returned %d: %s", status, parsed.Reason())
		}

		ack = &parsed
		return nil
	})
	if err != nil {
		return nil, status, err
	}

	c.logger.Debug(ctx, "Command delivered", map[string]interface{}{
		"command_id": env.CommandID,
		"ack_status": string(ack.AckStatus),
	})

	return ack, status, nil
}

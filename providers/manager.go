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

	"github.com/google/uuid"
	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/security"
	"github.com/storebridge/storebridge/utils"
)

// ManagerClient calls back to the Manager from the Executor side, signed the
// same way the Manager signs command deliveries.
type ManagerClient struct {
	baseURL    string
	instanceID string
	secret     string
	httpClient *http.Client
	logger     *utils.Logger
}

func NewManagerClient(baseURL, instanceID, secret string, timeout time.Duration) *ManagerClient {
	return &ManagerClient{
		baseURL:    baseURL,
		instanceID: instanceID,
		secret:     secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: utils.NewLogger("manager-client"),
	}
}

// RequestPull asks the Manager to re-pull entities for a store.
func (c *ManagerClient) RequestPull(ctx context.Context, pull *models.PullRequest) (*models.PullResponse, error) {
	rawBody, err := json.Marshal(pull)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pull request: %w", err)
	}

	nonce, err := security.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := security.Sign(c.secret, timestamp, nonce, rawBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/client/request_pull", bytes.NewReader(rawBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Instance-ID", c.instanceID)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Nonce", nonce)
	req.Header.Set("X-Signature", signature)
	req.Header.Set("X-Idempotency-Key", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manager returned %d for pull request", resp.StatusCode)
	}

	var result models.PullResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse pull response: %w", err)
	}

	c.logger.Info(ctx, "Pull requested", map[string]interface{}{
		"store_id": pull.StoreID,
		"queued":   result.Queued,
	})

	return &result, nil
}

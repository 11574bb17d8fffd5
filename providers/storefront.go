package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/utils"
)

// StorefrontProvider reads entity pages from the storefront platform API.
type StorefrontProvider interface {
	FetchEntities(ctx context.Context, storeID string, entity models.EntityType, since string, limit int) ([]models.JSON, error)
}

var storefrontPaths = map[models.EntityType]string{
	models.EntityProduct:     "products",
	models.EntityVariant:     "variants",
	models.EntityCustomer:    "customers",
	models.EntityOrder:       "orders",
	models.EntityCategory:    "categories",
	models.EntityBrand:       "brands",
	models.EntityOrderStatus: "order-statuses",

	// Quantity transactions are push-only events; the platform exposes no
	// listing to pull from.
	models.EntityProductQuantity: "product-quantities",
}

type HTTPStorefront struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryCfg   utils.RetryConfig
	logger     *utils.Logger
}

func NewHTTPStorefront(baseURL, token string) *HTTPStorefront {
	return &HTTPStorefront{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryCfg: utils.DefaultRetryConfig(),
		logger:   utils.NewLogger("storefront"),
	}
}

type storefrontPage struct {
	Data []models.JSON `json:"data"`
}

func (s *HTTPStorefront) FetchEntities(ctx context.Context, storeID string, entity models.EntityType, since string, limit int) ([]models.JSON, error) {
	path, ok := storefrontPaths[entity]
	if !ok {
		return nil, fmt.Errorf("unsupported entity type %q", entity)
	}

	query := url.Values{}
	query.Set("store_id", storeID)
	if since != "" {
		query.Set("updated_after", since)
	}
	if limit > 0 {
		query.Set("per_page", strconv.Itoa(limit))
	}

	endpoint := fmt.Sprintf("%s/admin/v2/%s?%s", s.baseURL, path, query.Encode())

	var page storefrontPage
	_, err := utils.Retry(ctx, s.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("storefront returned %d for %s", resp.StatusCode, path)
		}

		return json.Unmarshal(body, &page)
	})
	if err != nil {
		utils.LogError(ctx, err, "Storefront fetch failed", map[string]interface{}{
			"store_id": storeID,
			"entity":   string(entity),
		})
		return nil, err
	}

	s.logger.Debug(ctx, "Fetched storefront page", map[string]interface{}{
		"store_id": storeID,
		"entity":   string(entity),
		"count":    len(page.Data),
	})

	return page.Data, nil
}

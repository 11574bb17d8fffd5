package testing

import (
	"context"
	"time"

	"github.com/storebridge/storebridge/config"
	"github.com/storebridge/storebridge/models"
)

func MockConnection() *config.ConnectionConfig {
	return &config.ConnectionConfig{
		InstanceID:             "store-001",
		SharedSecret:           "test-shared-secret",
		TimestampWindowSeconds: 300,
		EnableReceiveProducts:  true,
		EnableReceiveOrders:    true,
		EnableManualPull:       true,
		RetryFailedAcks:        true,
	}
}

func MockDispatch() config.DispatchConfig {
	return config.DispatchConfig{
		RetryMaxAttempts:    3,
		RetryBackoffSeconds: 30,
		Workers:             2,
		PollInterval:        10 * time.Millisecond,
		AttemptTimeout:      time.Second,
		PullRatePerSecond:   100,
		PullBurst:           100,
	}
}

func MockProductRaw() models.JSON {
	return models.JSON{
		"id":     "prod_100",
		"name":   "Ceramic Mug",
		"sku":    "MUG-100",
		"status": "active",
		"price":  float64(25),
	}
}

func MockProductEnvelope() *models.CommandEnvelope {
	return &models.CommandEnvelope{
		CommandID:      "cmd_test123",
		CommandType:    models.CommandUpsertProduct,
		EntityType:     models.EntityProduct,
		StoreAccount:   "store-001",
		IdempotencyKey: "idem_test123",
		Payload: models.JSON{
			"external_id": "prod_100",
			"name":        "Ceramic Mug",
			"sku":         "MUG-100",
			"price":       float64(25),
		},
	}
}

func MockOrderRaw() models.JSON {
	return models.JSON{
		"id":     "ord_500",
		"status": "pending",
		"total":  float64(75),
		"customer": map[string]interface{}{
			"id":    "cus_200",
			"name":  "Sara Khalid",
			"email": "sara@example.com",
		},
		"items": []interface{}{
			map[string]interface{}{
				"sku":      "MUG-100",
				"name":     "Ceramic Mug",
				"quantity": float64(2),
				"price":    float64(25),
			},
			map[string]interface{}{
				"name":     "Gift Wrap",
				"quantity": float64(1),
				"price":    float64(5),
			},
		},
	}
}

func MockCommand() *models.Command {
	return &models.Command{
		ID:             "cmd_test123",
		CommandType:    models.CommandUpsertProduct,
		EntityType:     models.EntityProduct,
		StoreAccount:   "store-001",
		IdempotencyKey: "idem_test123",
		Payload: models.JSON{
			"external_id": "prod_100",
			"sku":         "MUG-100",
		},
		Status: models.CommandQueued,
	}
}

func MockContext() context.Context {
	return context.Background()
}

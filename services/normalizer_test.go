package services

import (
	"testing"

	"github.com/storebridge/storebridge/models"
)

func TestNormalizer_ProductDefaults(t *testing.T) {
	n := NewNormalizer()

	result, err := n.Normalize("store-001", models.EntityProduct, models.JSON{
		"id":    "prod_100",
		"name":  "Ceramic Mug",
		"sku":   "MUG-100",
		"price": float64(25),
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.Skipped {
		t.Fatal("Normalize() skipped a product with a sku")
	}

	payload := result.Command.Payload
	if got := payload.GetString("uom"); got != DefaultUOM {
		t.Errorf("uom = %q, want %q", got, DefaultUOM)
	}
	if got := payload.GetString("item_group"); got != DefaultItemGroup {
		t.Errorf("item_group = %q, want %q", got, DefaultItemGroup)
	}
	if result.Command.CommandType != models.CommandUpsertProduct {
		t.Errorf("command type = %s, want upsert_product", result.Command.CommandType)
	}
	if result.Command.IdempotencyKey == "" {
		t.Error("idempotency key is empty")
	}
}

func TestNormalizer_SkuGate(t *testing.T) {
	n := NewNormalizer()

	for _, entity := range []models.EntityType{models.EntityProduct, models.EntityVariant} {
		result, err := n.Normalize("store-001", entity, models.JSON{
			"id":   "x_1",
			"name": "No SKU",
		})
		if err != nil {
			t.Fatalf("Normalize(%s) error = %v", entity, err)
		}
		if !result.Skipped {
			t.Errorf("Normalize(%s) should skip when sku is missing", entity)
		}
		if result.Command != nil {
			t.Errorf("Normalize(%s) produced a command for a skipped entity", entity)
		}
		if result.SkipRecord == nil {
			t.Fatalf("Normalize(%s) skip has no record", entity)
		}
		if result.SkipRecord.Reason != "missing_sku" {
			t.Errorf("skip reason = %q, want missing_sku", result.SkipRecord.Reason)
		}
		if result.SkipRecord.Origin != models.SkipOriginManager {
			t.Errorf("skip origin = %q, want %q", result.SkipRecord.Origin, models.SkipOriginManager)
		}
	}
}

func TestNormalizer_CustomerDefaults(t *testing.T) {
	n := NewNormalizer()

	result, err := n.Normalize("store-001", models.EntityCustomer, models.JSON{
		"id":    "cus_200",
		"email": "sara@example.com",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	payload := result.Command.Payload
	if got := payload.GetString("group_id"); got != DefaultGroup {
		t.Errorf("group_id = %q, want %q", got, DefaultGroup)
	}
	if got := payload.GetString("territory"); got != DefaultTerritory {
		t.Errorf("territory = %q, want %q", got, DefaultTerritory)
	}
	if got := payload.GetString("customer_type"); got != DefaultCustomerType {
		t.Errorf("customer_type = %q, want %q", got, DefaultCustomerType)
	}
	if got := payload.GetString("name"); got != "cus_200" {
		t.Errorf("name fallback = %q, want external id", got)
	}
}

func TestNormalizer_ProductQuantityBypassesSkuGate(t *testing.T) {
	n := NewNormalizer()

	result, err := n.Normalize("store-001", models.EntityProductQuantity, models.JSON{
		"id":       "qty_300",
		"sku":      "MUG-100",
		"quantity": float64(12),
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.Skipped {
		t.Fatal("quantity record should not hit the sku gate")
	}
	if result.Command.CommandType != models.CommandUpsertProductQuantities {
		t.Errorf("command type = %s, want upsert_product_quantities", result.Command.CommandType)
	}
	if got := result.Command.Payload.GetFloat("quantity"); got != 12 {
		t.Errorf("quantity = %v, want 12", got)
	}

	// No SKU at all still normalizes; the Executor links what it can.
	result, err = n.Normalize("store-001", models.EntityProductQuantity, models.JSON{
		"id":       "qty_301",
		"quantity": float64(3),
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.Skipped {
		t.Error("quantity record without a sku should still produce a command")
	}
}

func TestNormalizer_QuantityTransaction(t *testing.T) {
	n := NewNormalizer()

	result, err := n.Normalize("store-001", models.EntityQuantityTransaction, models.JSON{
		"id":           "txn_400",
		"sku":          "MUG-100",
		"old_quantity": float64(12),
		"new_quantity": float64(10),
		"reason":       "order",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	payload := result.Command.Payload
	if result.Command.CommandType != models.CommandUpsertQuantityTransaction {
		t.Errorf("command type = %s, want upsert_product_quantity_transaction", result.Command.CommandType)
	}
	if got := payload.GetFloat("old_quantity"); got != 12 {
		t.Errorf("old_quantity = %v, want 12", got)
	}
	if got := payload.GetFloat("new_quantity"); got != 10 {
		t.Errorf("new_quantity = %v, want 10", got)
	}
	if got := payload.GetString("reason"); got != "order" {
		t.Errorf("reason = %q, want order", got)
	}
}

func TestNormalizer_OrderItemFiltering(t *testing.T) {
	n := NewNormalizer()

	result, err := n.Normalize("store-001", models.EntityOrder, models.JSON{
		"id": "ord_500",
		"customer": map[string]interface{}{
			"id":   "cus_200",
			"name": "Sara Khalid",
		},
		"items": []interface{}{
			map[string]interface{}{"sku": "MUG-100", "name": "Ceramic Mug", "quantity": float64(2), "price": float64(25)},
			map[string]interface{}{"name": "Gift Wrap", "price": float64(5)},
			map[string]interface{}{"sku": "TEE-200", "name": "T-Shirt"},
		},
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	items := result.Command.Payload.GetSlice("items")
	if len(items) != 2 {
		t.Fatalf("kept items = %d, want 2", len(items))
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %d, want 1", len(result.Warnings))
	}

	// Quantity defaults to 1 when the storefront omits it.
	second := models.JSON(items[1].(map[string]interface{}))
	if got := second.GetFloat("quantity"); got != 1 {
		t.Errorf("defaulted quantity = %v, want 1", got)
	}
}

func TestNormalizer_OrderWithNoUsableItemsStillDispatches(t *testing.T) {
	n := NewNormalizer()

	result, err := n.Normalize("store-001", models.EntityOrder, models.JSON{
		"id": "ord_501",
		"customer": map[string]interface{}{
			"id": "cus_200",
		},
		"items": []interface{}{
			map[string]interface{}{"name": "Gift Wrap"},
		},
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.Skipped {
		t.Error("order with all items dropped should still produce a command")
	}
	if len(result.Command.Payload.GetSlice("items")) != 0 {
		t.Error("dropped items leaked into payload")
	}
}

func TestDigestKey_Stable(t *testing.T) {
	payload := models.JSON{
		"external_id": "prod_100",
		"sku":         "MUG-100",
		"price":       float64(25),
	}

	a := DigestKey(models.CommandUpsertProduct, models.EntityProduct, "prod_100", payload)
	b := DigestKey(models.CommandUpsertProduct, models.EntityProduct, "prod_100", payload)
	if a != b {
		t.Error("digest differs across calls for identical input")
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(a))
	}
}

func TestDigestKey_IgnoresRaw(t *testing.T) {
	base := models.JSON{"external_id": "prod_100", "sku": "MUG-100"}
	withRaw := models.JSON{"external_id": "prod_100", "sku": "MUG-100", "raw": map[string]interface{}{"noise": "x"}}

	if DigestKey(models.CommandUpsertProduct, models.EntityProduct, "prod_100", base) !=
		DigestKey(models.CommandUpsertProduct, models.EntityProduct, "prod_100", withRaw) {
		t.Error("raw field changed the digest")
	}
}

func TestDigestKey_IgnoresNestedRaw(t *testing.T) {
	n := NewNormalizer()

	// Two fetches of the same order where only a volatile field inside the
	// embedded customer record differs must collapse to one key.
	order := func(updatedAt string) models.JSON {
		return models.JSON{
			"id": "ord_500",
			"customer": map[string]interface{}{
				"id":         "cus_200",
				"name":       "Sara Khalid",
				"updated_at": updatedAt,
			},
			"items": []interface{}{
				map[string]interface{}{"sku": "MUG-100", "quantity": float64(2), "price": float64(25)},
			},
		}
	}

	first, err := n.Normalize("store-001", models.EntityOrder, order("2026-01-01T10:00:00Z"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, err := n.Normalize("store-001", models.EntityOrder, order("2026-01-02T18:30:00Z"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if first.Command.IdempotencyKey != second.Command.IdempotencyKey {
		t.Errorf("keys diverged: %s vs %s", first.Command.IdempotencyKey, second.Command.IdempotencyKey)
	}
}

func TestDigestKey_ContentSensitive(t *testing.T) {
	a := DigestKey(models.CommandUpsertProduct, models.EntityProduct, "prod_100",
		models.JSON{"sku": "MUG-100", "price": float64(25)})
	b := DigestKey(models.CommandUpsertProduct, models.EntityProduct, "prod_100",
		models.JSON{"sku": "MUG-100", "price": float64(30)})

	if a == b {
		t.Error("digest unchanged for different payload content")
	}
}

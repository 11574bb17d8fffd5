package providers

import (
	"context"
	"testing"

	"github.com/storebridge/storebridge/models"
)

func productEnvelope(externalID, sku string) *models.CommandEnvelope {
	return &models.CommandEnvelope{
		CommandID:   "cmd_" + externalID,
		CommandType: models.CommandUpsertProduct,
		EntityType:  models.EntityProduct,
		Payload:     models.JSON{"external_id": externalID, "sku": sku, "name": "Test"},
	}
}

func TestMemoryERP_ProductUpsert(t *testing.T) {
	erp := NewMemoryERP()
	ctx := context.Background()

	result, err := erp.Apply(ctx, "store-001", productEnvelope("prod_100", "MUG-100"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Status != models.AckApplied {
		t.Fatalf("status = %s, want applied", result.Status)
	}
	if result.Message != "Created Item" {
		t.Errorf("message = %q, want Created Item", result.Message)
	}

	// Second apply with the same external id updates.
	result, err = erp.Apply(ctx, "store-001", productEnvelope("prod_100", "MUG-100"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Message != "Updated Item" {
		t.Errorf("message = %q, want Updated Item", result.Message)
	}
}

func TestMemoryERP_VariantNeedsTemplate(t *testing.T) {
	erp := NewMemoryERP()
	ctx := context.Background()

	variant := &models.CommandEnvelope{
		CommandID:   "cmd_var",
		CommandType: models.CommandUpsertVariant,
		EntityType:  models.EntityVariant,
		Payload:     models.JSON{"external_id": "var_1", "product_id": "prod_100", "sku": "MUG-100-RED"},
	}

	result, err := erp.Apply(ctx, "store-001", variant)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Status != models.AckFailed || result.Reason != "missing_template" {
		t.Errorf("result = %s/%s, want failed/missing_template", result.Status, result.Reason)
	}

	// Once the template exists the variant applies.
	if _, err := erp.Apply(ctx, "store-001", productEnvelope("prod_100", "MUG-100")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	result, err = erp.Apply(ctx, "store-001", variant)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Status != models.AckApplied {
		t.Errorf("status = %s, want applied", result.Status)
	}
}

func TestMemoryERP_OrderResolvesCustomer(t *testing.T) {
	erp := NewMemoryERP()
	ctx := context.Background()

	t.Run("Creates customer from nested payload", func(t *testing.T) {
		order := &models.CommandEnvelope{
			CommandID:   "cmd_ord",
			CommandType: models.CommandUpsertOrder,
			EntityType:  models.EntityOrder,
			Payload: models.JSON{
				"external_id": "ord_500",
				"customer":    map[string]interface{}{"external_id": "cus_200", "name": "Sara Khalid"},
				"items":       []interface{}{map[string]interface{}{"sku": "MUG-100", "quantity": float64(1)}},
			},
		}

		result, err := erp.Apply(ctx, "store-001", order)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if result.Status != models.AckApplied {
			t.Fatalf("status = %s, want applied", result.Status)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("warnings = %d, want 1 for created customer", len(result.Warnings))
		}
		if _, ok := erp.Doc(DoctypeCustomer, "cus_200"); !ok {
			t.Error("customer not created from order payload")
		}
	})

	t.Run("Fails without resolvable customer", func(t *testing.T) {
		order := &models.CommandEnvelope{
			CommandID:   "cmd_ord2",
			CommandType: models.CommandUpsertOrder,
			EntityType:  models.EntityOrder,
			Payload:     models.JSON{"external_id": "ord_501"},
		}

		result, err := erp.Apply(ctx, "store-001", order)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if result.Status != models.AckFailed || result.Reason != "missing_customer" {
			t.Errorf("result = %s/%s, want failed/missing_customer", result.Status, result.Reason)
		}
	})
}

func TestMemoryERP_OrderStatusNeedsOrder(t *testing.T) {
	erp := NewMemoryERP()
	ctx := context.Background()

	status := &models.CommandEnvelope{
		CommandID:   "cmd_st",
		CommandType: models.CommandUpsertOrderStatus,
		EntityType:  models.EntityOrderStatus,
		Payload:     models.JSON{"external_id": "ord_999", "status": "shipped"},
	}

	result, err := erp.Apply(ctx, "store-001", status)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Status != models.AckFailed || result.Reason != "missing_order" {
		t.Errorf("result = %s/%s, want failed/missing_order", result.Status, result.Reason)
	}
}

func TestMemoryERP_QuantityLinksItemBySKU(t *testing.T) {
	erp := NewMemoryERP()
	ctx := context.Background()

	quantity := &models.CommandEnvelope{
		CommandID:   "cmd_qty",
		CommandType: models.CommandUpsertProductQuantities,
		EntityType:  models.EntityProductQuantity,
		Payload:     models.JSON{"external_id": "qty_300", "sku": "MUG-100", "quantity": float64(12)},
	}

	// Unknown SKU: the record lands anyway, unlinked with a warning.
	result, err := erp.Apply(ctx, "store-001", quantity)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Status != models.AckApplied {
		t.Fatalf("status = %s, want applied", result.Status)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %d, want 1 for unlinked sku", len(result.Warnings))
	}
	doc, ok := erp.Doc(DoctypeProductQuantities, "qty_300")
	if !ok {
		t.Fatal("quantity record not stored")
	}
	if doc.GetString("item") != "" {
		t.Errorf("item = %q, want unlinked", doc.GetString("item"))
	}

	// Once the item exists, a re-apply links it.
	if _, err := erp.Apply(ctx, "store-001", productEnvelope("prod_100", "MUG-100")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	result, err = erp.Apply(ctx, "store-001", quantity)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings = %d, want 0 once the item exists", len(result.Warnings))
	}
	doc, _ = erp.Doc(DoctypeProductQuantities, "qty_300")
	if doc.GetString("item") != "prod_100" {
		t.Errorf("item = %q, want prod_100", doc.GetString("item"))
	}
}

func TestMemoryERP_QuantityTransaction(t *testing.T) {
	erp := NewMemoryERP()
	ctx := context.Background()

	txn := &models.CommandEnvelope{
		CommandID:   "cmd_txn",
		CommandType: models.CommandUpsertQuantityTransaction,
		EntityType:  models.EntityQuantityTransaction,
		Payload: models.JSON{
			"external_id":  "txn_400",
			"sku":          "MUG-100",
			"old_quantity": float64(12),
			"new_quantity": float64(10),
			"reason":       "order",
		},
	}

	result, err := erp.Apply(ctx, "store-001", txn)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Status != models.AckApplied {
		t.Fatalf("status = %s, want applied", result.Status)
	}
	if result.ERPDoctype != DoctypeQuantityTransaction {
		t.Errorf("doctype = %q, want %q", result.ERPDoctype, DoctypeQuantityTransaction)
	}
	if _, ok := erp.Doc(DoctypeQuantityTransaction, "txn_400"); !ok {
		t.Error("transaction record not stored")
	}
}

func TestApplyResult_Ack(t *testing.T) {
	applied := AppliedResult("Item", "ITEM-001", "Created Item", []string{"note"})
	ack := applied.Ack()
	if ack.AckStatus != models.AckApplied {
		t.Errorf("ack status = %s, want applied", ack.AckStatus)
	}
	if ack.AckPayload.GetString("erp_doc") != "ITEM-001" {
		t.Errorf("erp_doc = %q, want ITEM-001", ack.AckPayload.GetString("erp_doc"))
	}

	failed := FailedResult("missing_template", "template not found")
	ack = failed.Ack()
	if ack.AckStatus != models.AckFailed || ack.Reason() != "missing_template" {
		t.Errorf("ack = %s/%s, want failed/missing_template", ack.AckStatus, ack.Reason())
	}
}

package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/storebridge/storebridge/models"
)

// ERP defaults applied when the storefront record leaves a field empty.
const (
	DefaultUOM          = "Nos"
	DefaultItemGroup    = "All Item Groups"
	DefaultGroup        = "All Customer Groups"
	DefaultTerritory    = "All Territories"
	DefaultCustomerType = "Individual"
)

// NormalizeResult is either a dispatch-ready command or a skip with its audit
// record; never both.
type NormalizeResult struct {
	Command    *models.Command
	Skipped    bool
	SkipRecord *models.SkuSkipRecord
	Warnings   []string
}

// Normalizer converts raw storefront records into command payloads. The SKU
// gate lives here: a product or variant without a SKU never becomes a command.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Normalize(storeID string, entity models.EntityType, raw models.JSON) (*NormalizeResult, error) {
	commandType, ok := models.CommandTypeForEntity(entity)
	if !ok {
		return nil, fmt.Errorf("no command type for entity %q", entity)
	}

	externalID := raw.GetString("external_id")
	if externalID == "" {
		externalID = raw.GetString("id")
	}
	if externalID == "" {
		return nil, fmt.Errorf("%s record has no external id", entity)
	}

	var payload models.JSON
	var warnings []string
	var err error

	switch entity {
	case models.EntityProduct:
		sku := raw.GetString("sku")
		if sku == "" {
			return skipResult(storeID, entity, externalID), nil
		}
		payload, err = models.ToJSON(n.normalizeProduct(externalID, sku, raw))
	case models.EntityVariant:
		sku := raw.GetString("sku")
		if sku == "" {
			return skipResult(storeID, entity, externalID), nil
		}
		payload, err = models.ToJSON(n.normalizeVariant(externalID, sku, raw))
	case models.EntityCustomer:
		payload, err = models.ToJSON(n.normalizeCustomer(externalID, raw))
	case models.EntityOrder:
		var order *models.OrderPayload
		order, warnings = n.normalizeOrder(externalID, raw)
		payload, err = models.ToJSON(order)
	case models.EntityCategory:
		payload, err = models.ToJSON(&models.CategoryPayload{
			ExternalID: externalID,
			Name:       raw.GetString("name"),
			Status:     raw.GetString("status"),
			ParentID:   raw.GetString("parent_id"),
			URL:        raw.GetString("url"),
			Image:      raw.GetString("image"),
			Raw:        raw,
		})
	case models.EntityBrand:
		payload, err = models.ToJSON(&models.BrandPayload{
			ExternalID: externalID,
			Name:       raw.GetString("name"),
			Status:     raw.GetString("status"),
			Logo:       raw.GetString("logo"),
			URL:        raw.GetString("url"),
			Raw:        raw,
		})
	// Quantity records carry the SKU for item linking but update stock, not
	// the catalog, so they bypass the SKU gate.
	case models.EntityProductQuantity:
		payload, err = models.ToJSON(&models.ProductQuantityPayload{
			ExternalID:        externalID,
			SKU:               raw.GetString("sku"),
			SKUID:             raw.GetString("sku_id"),
			Name:              raw.GetString("name"),
			Variant:           raw.GetString("variant"),
			Image:             raw.GetString("image"),
			Quantity:          raw.GetFloat("quantity"),
			SoldQuantity:      raw.GetFloat("sold_quantity"),
			Price:             raw.GetFloat("price"),
			UnlimitedQuantity: raw.GetBool("unlimited_quantity", false),
			Raw:               raw,
		})
	case models.EntityQuantityTransaction:
		payload, err = models.ToJSON(&models.QuantityTransactionPayload{
			ExternalID:        externalID,
			SKU:               raw.GetString("sku"),
			Name:              raw.GetString("name"),
			Variant:           raw.GetString("variant"),
			Image:             raw.GetString("image"),
			CreatedAt:         raw.GetString("created_at"),
			OldQuantity:       raw.GetFloat("old_quantity"),
			NewQuantity:       raw.GetFloat("new_quantity"),
			UnlimitedQuantity: raw.GetBool("unlimited_quantity", false),
			Reason:            raw.GetString("reason"),
			UserID:            raw.GetString("user_id"),
			UserType:          raw.GetString("user_type"),
			UserFirstName:     raw.GetString("user_first_name"),
			Raw:               raw,
		})
	case models.EntityOrderStatus:
		payload, err = models.ToJSON(&models.OrderStatusPayload{
			ExternalID: externalID,
			Status:     raw.GetString("status"),
			UpdatedAt:  raw.GetString("updated_at"),
			Raw:        raw,
		})
	default:
		return nil, fmt.Errorf("unsupported entity type %q", entity)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s %s: %w", entity, externalID, err)
	}

	command := &models.Command{
		CommandType:    commandType,
		EntityType:     entity,
		StoreAccount:   storeID,
		Payload:        payload,
		IdempotencyKey: DigestKey(commandType, entity, externalID, payload),
		Status:         models.CommandQueued,
	}

	return &NormalizeResult{Command: command, Warnings: warnings}, nil
}

func (n *Normalizer) normalizeProduct(externalID, sku string, raw models.JSON) *models.ProductPayload {
	product := &models.ProductPayload{
		ExternalID:  externalID,
		Name:        raw.GetString("name"),
		SKU:         sku,
		Status:      raw.GetString("status"),
		Price:       raw.GetFloat("price"),
		Currency:    raw.GetString("currency"),
		Description: raw.GetString("description"),
		URL:         raw.GetString("url"),
		BrandID:     raw.GetString("brand_id"),
		CategoryIDs: raw.GetStringSlice("category_ids"),
		Images:      raw.GetStringSlice("images"),
		UOM:         raw.GetString("uom"),
		IsStockItem: raw.GetBool("is_stock_item", true),
		ItemGroup:   raw.GetString("item_group"),
		Warehouse:   raw.GetString("warehouse"),
		Barcode:     raw.GetString("barcode"),
		Raw:         raw,
	}
	if product.UOM == "" {
		product.UOM = DefaultUOM
	}
	if product.ItemGroup == "" {
		product.ItemGroup = DefaultItemGroup
	}
	return product
}

func (n *Normalizer) normalizeVariant(externalID, sku string, raw models.JSON) *models.VariantPayload {
	variant := &models.VariantPayload{
		ExternalID: externalID,
		ProductID:  raw.GetString("product_id"),
		Name:       raw.GetString("name"),
		SKU:        sku,
		Status:     raw.GetString("status"),
		Price:      raw.GetFloat("price"),
		Options:    raw.GetMap("options"),
		UOM:        raw.GetString("uom"),
		Warehouse:  raw.GetString("warehouse"),
		Barcode:    raw.GetString("barcode"),
		Raw:        raw,
	}
	if variant.UOM == "" {
		variant.UOM = DefaultUOM
	}
	return variant
}

func (n *Normalizer) normalizeCustomer(externalID string, raw models.JSON) *models.CustomerPayload {
	customer := &models.CustomerPayload{
		ExternalID:   externalID,
		Name:         raw.GetString("name"),
		Email:        raw.GetString("email"),
		Phone:        raw.GetString("phone"),
		Status:       raw.GetString("status"),
		GroupID:      raw.GetString("group_id"),
		CustomerType: raw.GetString("customer_type"),
		Territory:    raw.GetString("territory"),
		Raw:          raw,
	}
	if customer.Name == "" {
		customer.Name = externalID
	}
	if customer.GroupID == "" {
		customer.GroupID = DefaultGroup
	}
	if customer.CustomerType == "" {
		customer.CustomerType = DefaultCustomerType
	}
	if customer.Territory == "" {
		customer.Territory = DefaultTerritory
	}

	for _, entry := range raw.GetSlice("addresses") {
		addr, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		a := models.JSON(addr)
		customer.Addresses = append(customer.Addresses, models.CustomerAddress{
			AddressLine1: a.GetString("address_line1"),
			AddressLine2: a.GetString("address_line2"),
			City:         a.GetString("city"),
			State:        a.GetString("state"),
			Country:      a.GetString("country"),
			PostalCode:   a.GetString("postal_code"),
		})
	}

	return customer
}

// normalizeOrder drops line items that carry neither a SKU nor an external id
// and reports each drop as a warning. An order that loses every item still
// dispatches; the Executor records the failure so it shows up in the command
// log.
func (n *Normalizer) normalizeOrder(externalID string, raw models.JSON) (*models.OrderPayload, []string) {
	order := &models.OrderPayload{
		ExternalID: externalID,
		Status:     raw.GetString("status"),
		CreatedAt:  raw.GetString("created_at"),
		Currency:   raw.GetString("currency"),
		Total:      raw.GetFloat("total"),
		Shipping:   raw.GetFloat("shipping"),
		Raw:        raw,
	}

	if customer := raw.GetMap("customer"); customer != nil {
		normalized := n.normalizeCustomer(customerExternalID(customer), customer)
		order.Customer = *normalized
	}

	var warnings []string
	for _, entry := range raw.GetSlice("items") {
		item, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		j := models.JSON(item)
		sku := j.GetString("sku")
		itemID := j.GetString("external_id")
		if sku == "" && itemID == "" {
			warnings = append(warnings, fmt.Sprintf("dropped item %q: no sku or external id", j.GetString("name")))
			continue
		}
		quantity := j.GetFloat("quantity")
		if quantity == 0 {
			quantity = 1
		}
		order.Items = append(order.Items, models.OrderItem{
			ExternalID: itemID,
			SKU:        sku,
			Name:       j.GetString("name"),
			Quantity:   quantity,
			Price:      j.GetFloat("price"),
		})
	}

	return order, warnings
}

func customerExternalID(customer models.JSON) string {
	if id := customer.GetString("external_id"); id != "" {
		return id
	}
	return customer.GetString("id")
}

func skipResult(storeID string, entity models.EntityType, externalID string) *NormalizeResult {
	return &NormalizeResult{
		Skipped: true,
		SkipRecord: &models.SkuSkipRecord{
			StoreID:    storeID,
			EntityType: entity,
			ExternalID: externalID,
			Reason:     "missing_sku",
			Origin:     models.SkipOriginManager,
		},
	}
}

// DigestKey derives the idempotency key from the command's content. Raw
// passthrough fields are excluded at every nesting level, so a volatile
// storefront field cannot change the key between re-fetches of the same
// record; encoding/json sorts map keys, making the digest stable.
func DigestKey(commandType models.CommandType, entity models.EntityType, externalID string, payload models.JSON) string {
	material, _ := json.Marshal(map[string]interface{}{
		"command_type": commandType,
		"entity_type":  entity,
		"external_id":  externalID,
		"payload":      stripRaw(map[string]interface{}(payload)),
	})

	digest := sha256.Sum256(material)
	return hex.EncodeToString(digest[:])
}

// stripRaw drops every "raw" key, including ones inside embedded payloads such
// as an order's customer.
func stripRaw(value interface{}) interface{} {
	switch v := value.(type) {
	case models.JSON:
		return stripRaw(map[string]interface{}(v))
	case map[string]interface{}:
		trimmed := make(map[string]interface{}, len(v))
		for key, entry := range v {
			if key == "raw" {
				continue
			}
			trimmed[key] = stripRaw(entry)
		}
		return trimmed
	case []interface{}:
		trimmed := make([]interface{}, len(v))
		for i, entry := range v {
			trimmed[i] = stripRaw(entry)
		}
		return trimmed
	default:
		return value
	}
}

package models

type ProductPayload struct {
	ExternalID  string   `json:"external_id"`
	Name        string   `json:"name"`
	SKU         string   `json:"sku"`
	Status      string   `json:"status,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	BrandID     string   `json:"brand_id,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	Images      []string `json:"images,omitempty"`
	UOM         string   `json:"uom,omitempty"`
	IsStockItem bool     `json:"is_stock_item,omitempty"`
	ItemGroup   string   `json:"item_group,omitempty"`
	Warehouse   string   `json:"warehouse,omitempty"`
	Barcode     string   `json:"barcode,omitempty"`
	Raw         JSON     `json:"raw,omitempty"`
}

type VariantPayload struct {
	ExternalID string  `json:"external_id"`
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	SKU        string  `json:"sku"`
	Status     string  `json:"status,omitempty"`
	Price      float64 `json:"price,omitempty"`
	Options    JSON    `json:"options,omitempty"`
	UOM        string  `json:"uom,omitempty"`
	Warehouse  string  `json:"warehouse,omitempty"`
	Barcode    string  `json:"barcode,omitempty"`
	Raw        JSON    `json:"raw,omitempty"`
}

type CustomerAddress struct {
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

type CustomerPayload struct {
	ExternalID   string            `json:"external_id"`
	Name         string            `json:"name"`
	Email        string            `json:"email,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Status       string            `json:"status,omitempty"`
	GroupID      string            `json:"group_id,omitempty"`
	CustomerType string            `json:"customer_type,omitempty"`
	Territory    string            `json:"territory,omitempty"`
	Addresses    []CustomerAddress `json:"addresses,omitempty"`
	Raw          JSON              `json:"raw,omitempty"`
}

type OrderItem struct {
	ExternalID string  `json:"external_id,omitempty"`
	SKU        string  `json:"sku,omitempty"`
	Name       string  `json:"name,omitempty"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
}

type OrderPayload struct {
	ExternalID string          `json:"external_id"`
	Customer   CustomerPayload `json:"customer"`
	Items      []OrderItem     `json:"items"`
	Status     string          `json:"status,omitempty"`
	CreatedAt  string          `json:"created_at,omitempty"`
	Currency   string          `json:"currency,omitempty"`
	Total      float64         `json:"total,omitempty"`
	Shipping   float64         `json:"shipping,omitempty"`
	Raw        JSON            `json:"raw,omitempty"`
}

type CategoryPayload struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Status     string `json:"status,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Image      string `json:"image,omitempty"`
	Raw        JSON   `json:"raw,omitempty"`
}

type BrandPayload struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Status     string `json:"status,omitempty"`
	Logo       string `json:"logo,omitempty"`
	URL        string `json:"url,omitempty"`
	Raw        JSON   `json:"raw,omitempty"`
}

// ProductQuantityPayload is a stock-level snapshot for a product or variant.
// The SKU links it to its ERP item; the record is kept even when the item is
// not known yet.
type ProductQuantityPayload struct {
	ExternalID        string  `json:"external_id"`
	SKU               string  `json:"sku,omitempty"`
	SKUID             string  `json:"sku_id,omitempty"`
	Name              string  `json:"name,omitempty"`
	Variant           string  `json:"variant,omitempty"`
	Image             string  `json:"image,omitempty"`
	Quantity          float64 `json:"quantity"`
	SoldQuantity      float64 `json:"sold_quantity,omitempty"`
	Price             float64 `json:"price,omitempty"`
	UnlimitedQuantity bool    `json:"unlimited_quantity,omitempty"`
	Raw               JSON    `json:"raw,omitempty"`
}

// QuantityTransactionPayload is one stock movement: who changed the quantity,
// from what to what, and why.
type QuantityTransactionPayload struct {
	ExternalID        string  `json:"external_id"`
	SKU               string  `json:"sku,omitempty"`
	Name              string  `json:"name,omitempty"`
	Variant           string  `json:"variant,omitempty"`
	Image             string  `json:"image,omitempty"`
	CreatedAt         string  `json:"created_at,omitempty"`
	OldQuantity       float64 `json:"old_quantity"`
	NewQuantity       float64 `json:"new_quantity"`
	UnlimitedQuantity bool    `json:"unlimited_quantity,omitempty"`
	Reason            string  `json:"reason,omitempty"`
	UserID            string  `json:"user_id,omitempty"`
	UserType          string  `json:"user_type,omitempty"`
	UserFirstName     string  `json:"user_first_name,omitempty"`
	Raw               JSON    `json:"raw,omitempty"`
}

type OrderStatusPayload struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	UpdatedAt  string `json:"updated_at,omitempty"`
	Raw        JSON   `json:"raw,omitempty"`
}

type PullRequest struct {
	StoreID     string   `json:"store_id"`
	EntityTypes []string `json:"entity_types"`
	Since       string   `json:"since,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	ForceNew    bool     `json:"force_new,omitempty"`
	BranchID    string   `json:"branch_id,omitempty"`
}

type PullResponse struct {
	OK                bool           `json:"ok"`
	Queued            map[string]int `json:"queued"`
	SkippedMissingSKU int            `json:"skipped_missing_sku"`
	Errors            []string       `json:"errors,omitempty"`
}

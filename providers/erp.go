package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/storebridge/storebridge/models"
)

// ApplyResult is the outcome of executing one command against the ERP.
type ApplyResult struct {
	Status     models.AckStatus
	Reason     string
	Message    string
	ERPDoctype string
	ERPDoc     string
	Warnings   []string
}

func (r *ApplyResult) Ack() *models.Acknowledgment {
	switch r.Status {
	case models.AckApplied:
		payload := models.JSON{}
		if r.ERPDoctype != "" {
			payload["erp_doctype"] = r.ERPDoctype
		}
		if r.ERPDoc != "" {
			payload["erp_doc"] = r.ERPDoc
		}
		if r.Message != "" {
			payload["message"] = r.Message
		}
		if len(r.Warnings) > 0 {
			payload["warnings"] = r.Warnings
		}
		return models.AppliedAck(payload)
	case models.AckSkipped:
		return models.SkippedAck(r.Reason)
	case models.AckRejected:
		return models.RejectedAck(r.Reason)
	default:
		return models.FailedAck(r.Reason, r.Message)
	}
}

func AppliedResult(doctype, doc, message string, warnings []string) *ApplyResult {
	return &ApplyResult{
		Status:     models.AckApplied,
		ERPDoctype: doctype,
		ERPDoc:     doc,
		Message:    message,
		Warnings:   warnings,
	}
}

func FailedResult(reason, message string) *ApplyResult {
	return &ApplyResult{Status: models.AckFailed, Reason: reason, Message: message}
}

// ERPProvider executes an entity command against the ERP backend. An error
// return means the backend could not be reached; a business-level failure is
// reported inside the result instead.
type ERPProvider interface {
	Name() string
	Apply(ctx context.Context, storeID string, env *models.CommandEnvelope) (*ApplyResult, error)
	HealthCheck(ctx context.Context) error
}

const (
	DoctypeItem          = "Item"
	DoctypeCustomer      = "Customer"
	DoctypeSalesOrder    = "Sales Order"
	DoctypeItemGroup     = "Item Group"
	DoctypeBrand         = "Brand"
	DoctypeCustomerGroup = "Customer Group"

	DoctypeProductQuantities   = "Product Quantities"
	DoctypeQuantityTransaction = "Product Quantity Transaction"
)

// MemoryERP keeps documents in process memory. It backs development setups and
// tests; production deployments plug in a real ERP client behind ERPProvider.
type MemoryERP struct {
	mu   sync.Mutex
	docs map[string]map[string]models.JSON
}

func NewMemoryERP() *MemoryERP {
	return &MemoryERP{docs: make(map[string]map[string]models.JSON)}
}

func (p *MemoryERP) Name() string {
	return "memory"
}

func (p *MemoryERP) HealthCheck(ctx context.Context) error {
	return nil
}

func (p *MemoryERP) Apply(ctx context.Context, storeID string, env *models.CommandEnvelope) (*ApplyResult, error) {
	switch env.CommandType {
	case models.CommandUpsertProduct:
		return p.upsert(DoctypeItem, env.Payload)
	case models.CommandUpsertVariant:
		return p.upsertVariant(env.Payload)
	case models.CommandUpsertCustomer:
		return p.upsert(DoctypeCustomer, env.Payload)
	case models.CommandUpsertOrder:
		return p.upsertOrder(env.Payload)
	case models.CommandUpsertCategory:
		return p.upsert(DoctypeItemGroup, env.Payload)
	case models.CommandUpsertBrand:
		return p.upsert(DoctypeBrand, env.Payload)
	case models.CommandUpsertOrderStatus:
		return p.updateOrderStatus(env.Payload)
	case models.CommandUpsertProductQuantities:
		return p.upsertQuantityDoc(DoctypeProductQuantities, env.Payload)
	case models.CommandUpsertQuantityTransaction:
		return p.upsertQuantityDoc(DoctypeQuantityTransaction, env.Payload)
	default:
		return FailedResult("unsupported_command", fmt.Sprintf("no handler for %s", env.CommandType)), nil
	}
}

func (p *MemoryERP) upsert(doctype string, payload models.JSON) (*ApplyResult, error) {
	externalID := payload.GetString("external_id")
	if externalID == "" {
		return FailedResult("missing_external_id", "payload has no external_id"), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	created := p.put(doctype, externalID, payload)
	return AppliedResult(doctype, externalID, verb(created)+" "+doctype, nil), nil
}

// upsertVariant requires its template item to exist first; ordering across
// commands is the Manager's job, so a missing template is a retryable failure.
func (p *MemoryERP) upsertVariant(payload models.JSON) (*ApplyResult, error) {
	externalID := payload.GetString("external_id")
	if externalID == "" {
		return FailedResult("missing_external_id", "payload has no external_id"), nil
	}
	productID := payload.GetString("product_id")

	p.mu.Lock()
	defer p.mu.Unlock()

	if productID == "" || !p.exists(DoctypeItem, productID) {
		return FailedResult("missing_template", fmt.Sprintf("template item %q not found", productID)), nil
	}

	created := p.put(DoctypeItem, externalID, payload)
	return AppliedResult(DoctypeItem, externalID, verb(created)+" variant item", nil), nil
}

// upsertOrder resolves its customer before writing the order, creating the
// customer from the nested payload when it is not known yet.
func (p *MemoryERP) upsertOrder(payload models.JSON) (*ApplyResult, error) {
	externalID := payload.GetString("external_id")
	if externalID == "" {
		return FailedResult("missing_external_id", "payload has no external_id"), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var warnings []string
	customer := payload.GetMap("customer")
	customerID := customer.GetString("external_id")
	if customerID == "" {
		return FailedResult("missing_customer", "order has no resolvable customer"), nil
	}
	if !p.exists(DoctypeCustomer, customerID) {
		p.put(DoctypeCustomer, customerID, customer)
		warnings = append(warnings, "created customer from order payload")
	}

	created := p.put(DoctypeSalesOrder, externalID, payload)
	return AppliedResult(DoctypeSalesOrder, externalID, verb(created)+" sales order", warnings), nil
}

func (p *MemoryERP) updateOrderStatus(payload models.JSON) (*ApplyResult, error) {
	externalID := payload.GetString("external_id")
	if externalID == "" {
		return FailedResult("missing_external_id", "payload has no external_id"), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.get(DoctypeSalesOrder, externalID)
	if !ok {
		return FailedResult("missing_order", fmt.Sprintf("sales order %q not found", externalID)), nil
	}

	existing["status"] = payload.GetString("status")
	return AppliedResult(DoctypeSalesOrder, externalID, "Updated sales order status", nil), nil
}

// upsertQuantityDoc records a stock level or a stock movement. The record
// links to its item by SKU when the item already exists; an unknown SKU is
// kept unlinked rather than failed, the link resolves with the next product
// upsert.
func (p *MemoryERP) upsertQuantityDoc(doctype string, payload models.JSON) (*ApplyResult, error) {
	externalID := payload.GetString("external_id")
	if externalID == "" {
		return FailedResult("missing_external_id", "payload has no external_id"), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var warnings []string
	if sku := payload.GetString("sku"); sku != "" {
		if item, ok := p.findBySKU(DoctypeItem, sku); ok {
			payload["item"] = item
		} else {
			warnings = append(warnings, fmt.Sprintf("no item for sku %q", sku))
		}
	}

	created := p.put(doctype, externalID, payload)
	return AppliedResult(doctype, externalID, verb(created)+" "+doctype, warnings), nil
}

func (p *MemoryERP) put(doctype, id string, doc models.JSON) (created bool) {
	bucket, ok := p.docs[doctype]
	if !ok {
		bucket = make(map[string]models.JSON)
		p.docs[doctype] = bucket
	}
	_, existed := bucket[id]
	bucket[id] = doc
	return !existed
}

func (p *MemoryERP) get(doctype, id string) (models.JSON, bool) {
	doc, ok := p.docs[doctype][id]
	return doc, ok
}

func (p *MemoryERP) findBySKU(doctype, sku string) (string, bool) {
	for id, doc := range p.docs[doctype] {
		if doc.GetString("sku") == sku {
			return id, true
		}
	}
	return "", false
}

func (p *MemoryERP) exists(doctype, id string) bool {
	_, ok := p.docs[doctype][id]
	return ok
}

// Doc returns a stored document. Test helper.
func (p *MemoryERP) Doc(doctype, id string) (models.JSON, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.get(doctype, id)
}

func verb(created bool) string {
	if created {
		return "Created"
	}
	return "Updated"
}

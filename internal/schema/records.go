package schema

import "strings"

// Target field names for the Sales Ledger, in column order.
const (
	FieldOrderID             = "order_id"
	FieldCustomerID          = "customer_id"
	FieldCustomerName        = "customer_name"
	FieldOrderDate           = "order_date"
	FieldCompletionDate      = "completion_date"
	FieldProductNames        = "product_names"
	FieldUnitPrice           = "unit_price"
	FieldQuantity            = "quantity"
	FieldTotalAmount         = "total_amount"
	FieldOrderStatus         = "order_status"
	FieldPerProductReduction = "per_product_carbon_reduction"
	FieldTotalReduction      = "total_carbon_reduction"
)

// Additional Customer Registry field names.
const (
	FieldContact            = "contact"
	FieldEmail              = "email"
	FieldBirthDate          = "birth_date"
	FieldJoinDate           = "join_date"
	FieldLastPurchaseDate   = "last_purchase_date"
	FieldTotalPurchaseCount = "total_purchase_count"
	FieldCarbonGrade        = "carbon_grade"
	FieldCarbonScore        = "carbon_score"
)

// SalesFields is the Sales Ledger schema in column order.
var SalesFields = []string{
	FieldOrderID,
	FieldCustomerID,
	FieldCustomerName,
	FieldOrderDate,
	FieldCompletionDate,
	FieldProductNames,
	FieldUnitPrice,
	FieldQuantity,
	FieldTotalAmount,
	FieldOrderStatus,
	FieldPerProductReduction,
	FieldTotalReduction,
}

// CustomerFields is the Customer Registry schema in column order.
var CustomerFields = []string{
	FieldCustomerID,
	FieldCustomerName,
	FieldContact,
	FieldEmail,
	FieldBirthDate,
	FieldJoinDate,
	FieldLastPurchaseDate,
	FieldTotalAmount,
	FieldTotalPurchaseCount,
	FieldCarbonGrade,
	FieldCarbonScore,
}

// SalesRecord is one normalized Sales Ledger row. ProductNames and
// PerProductReduction are comma-joined lists of equal, padded cardinality.
type SalesRecord struct {
	OrderID             string
	CustomerID          string
	CustomerName        string
	OrderDate           string
	CompletionDate      string
	ProductNames        string
	UnitPrice           string
	Quantity            string
	TotalAmount         string
	OrderStatus         string
	PerProductReduction string
	TotalReduction      string
}

// Row renders the record in SalesFields column order.
func (r SalesRecord) Row() []string {
	return []string{
		r.OrderID,
		r.CustomerID,
		r.CustomerName,
		r.OrderDate,
		r.CompletionDate,
		r.ProductNames,
		r.UnitPrice,
		r.Quantity,
		r.TotalAmount,
		r.OrderStatus,
		r.PerProductReduction,
		r.TotalReduction,
	}
}

// Key returns the record's customer identity, false if unidentifiable.
func (r SalesRecord) Key() (CustomerKey, bool) {
	return KeyFor(r.CustomerID, r.CustomerName)
}

// CustomerRecord is one deduplicated Customer Registry row. The aggregate
// fields (LastPurchaseDate onward) start empty and are filled by the scorer
// and aggregator, never by projection.
type CustomerRecord struct {
	CustomerID         string
	CustomerName       string
	Contact            string
	Email              string
	BirthDate          string
	JoinDate           string
	LastPurchaseDate   string
	TotalAmount        string
	TotalPurchaseCount string
	CarbonGrade        string
	CarbonScore        string
}

// Row renders the record in CustomerFields column order.
func (r CustomerRecord) Row() []string {
	return []string{
		r.CustomerID,
		r.CustomerName,
		r.Contact,
		r.Email,
		r.BirthDate,
		r.JoinDate,
		r.LastPurchaseDate,
		r.TotalAmount,
		r.TotalPurchaseCount,
		r.CarbonGrade,
		r.CarbonScore,
	}
}

// Key returns the record's customer identity, false if unidentifiable.
func (r CustomerRecord) Key() (CustomerKey, bool) {
	return KeyFor(r.CustomerID, r.CustomerName)
}

// CustomerKey is the canonical customer identity used for dedup and
// aggregation. ID-prefixed when an ID exists, else name-prefixed.
type CustomerKey string

// KeyFor computes the identity with strict ID-over-name precedence. A row
// with neither is unidentifiable and excluded from the registry and from
// aggregation. Rows for the same physical customer that appear once with an
// ID and once without will not merge; known limitation.
func KeyFor(customerID, customerName string) (CustomerKey, bool) {
	if id := strings.TrimSpace(customerID); id != "" {
		return CustomerKey("ID:" + id), true
	}
	if name := strings.TrimSpace(customerName); name != "" {
		return CustomerKey("NAME:" + name), true
	}
	return "", false
}

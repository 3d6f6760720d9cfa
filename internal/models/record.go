package models

// Record is a single document read from a keyed collection.
type Record struct {
	Key  string         `json:"key"`
	Data map[string]any `json:"data"`
}

// Field returns the top-level value stored under name, or nil.
func (r Record) Field(name string) any {
	if r.Data == nil {
		return nil
	}
	return r.Data[name]
}

// Collection names used by the order management app
const (
	CollectionOrders          = "orders"
	CollectionCustomers       = "newCustomers"
	CollectionCustomerMetrics = "customerMetrics"
)

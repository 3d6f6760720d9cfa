package models

// Order fields read or written by the backfill jobs
const (
	FieldOrderDate        = "orderDate"        // CFAbsoluteTime seconds
	FieldDeliveryTimeSlot = "deliveryTimeSlot" // one of the timeslot labels
)

// Order is the typed view of an order document. Only the fields the jobs
// care about are mapped; everything else stays in the raw record.
type Order struct {
	Key              string   `json:"key"`
	ID               string   `json:"id,omitempty"`
	CustomerName     string   `json:"customerName,omitempty"`
	CustomerPhone    string   `json:"customerPhone,omitempty"`
	OrderDate        *float64 `json:"orderDate,omitempty"`
	DeliveryTimeSlot string   `json:"deliveryTimeSlot,omitempty"`
	Status           string   `json:"status,omitempty"`
	Total            float64  `json:"total,omitempty"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Document renders the order as a store document. Key is not part of the
// document, it is the record's key.
func (o Order) Document() map[string]any {
	doc := map[string]any{
		"id":     o.ID,
		"status": o.Status,
		"total":  o.Total,
	}
	if o.CustomerName != "" {
		doc["customerName"] = o.CustomerName
	}
	if o.CustomerPhone != "" {
		doc["customerPhone"] = o.CustomerPhone
	}
	if o.OrderDate != nil {
		doc[FieldOrderDate] = *o.OrderDate
	}
	if o.DeliveryTimeSlot != "" {
		doc[FieldDeliveryTimeSlot] = o.DeliveryTimeSlot
	}
	return doc
}

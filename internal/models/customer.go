package models

import "strings"

// Customer is a customer entity. Phone is the trimmed join key to
// customerMetrics; RawPhone is the value as stored.
type Customer struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	RawPhone string `json:"rawPhone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// CustomerFromRecord maps a raw customer document. A numeric phone is
// rendered as its decimal key; unset phones are left empty.
func CustomerFromRecord(key string, data map[string]any) Customer {
	c := Customer{Key: key}
	if v, ok := data["name"].(string); ok {
		c.Name = v
	}
	if v, ok := data["phone"]; Truthy(v, ok) {
		if phone, ok := Key(v); ok {
			c.RawPhone = phone
			c.Phone = strings.TrimSpace(phone)
		}
	}
	if v, ok := data["address"].(string); ok {
		c.Address = v
	}
	return c
}

// DisplayPhone is the phone as operators find it in the source record.
func (c Customer) DisplayPhone() string {
	if c.RawPhone != "" {
		return c.RawPhone
	}
	return c.Phone
}

// HasPhone reports whether the customer can be joined to a metrics record.
func (c Customer) HasPhone() bool {
	return c.Phone != ""
}

// Metric fields of a customerMetrics document
const (
	MetricTotalOrders  = "totalOrders"
	MetricTotalSpent   = "totalSpent"
	MetricAOV          = "aov"
	MetricCLV          = "clv"
	MetricHealthScore  = "healthScore"
	MetricRFM          = "rfm"
	MetricCLVSegment   = "clvSegment"
	MetricChurnRisk    = "churnRisk"
	MetricLoyaltyStage = "loyaltyStage"
	MetricLocation     = "location"
	MetricComputedAt   = "computedAt"
)

// CLV segments
const (
	CLVSegmentVIP    = "VIP"
	CLVSegmentHigh   = "High"
	CLVSegmentMedium = "Medium"
	CLVSegmentLow    = "Low"
)

// CLVSegments lists every valid CLV segment.
var CLVSegments = []string{CLVSegmentVIP, CLVSegmentHigh, CLVSegmentMedium, CLVSegmentLow}

// Churn risk levels
const (
	ChurnRiskLow    = "low"
	ChurnRiskMedium = "medium"
	ChurnRiskHigh   = "high"
)

// ChurnRiskLevels lists every valid churn risk level.
var ChurnRiskLevels = []string{ChurnRiskLow, ChurnRiskMedium, ChurnRiskHigh}

// Package seed generates a realistic shop dataset for local runs: orders
// with and without delivery slots, customers, and a mix of valid, broken
// and stale customer metrics.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/matthieukhl/bakehouse/internal/backfill"
	"github.com/matthieukhl/bakehouse/internal/cftime"
	"github.com/matthieukhl/bakehouse/internal/integrity"
	"github.com/matthieukhl/bakehouse/internal/models"
	"github.com/matthieukhl/bakehouse/internal/timeslot"
	"github.com/matthieukhl/bakehouse/internal/types"
)

type Options struct {
	Orders    int
	Customers int
	// Seed makes the dataset reproducible. Zero picks a random seed.
	Seed      uint64
	Now       time.Time
	BatchSize int
}

type Summary struct {
	Orders            int `json:"orders"`
	OrdersWithSlot    int `json:"ordersWithSlot"`
	OrdersWithoutDate int `json:"ordersWithoutDate"`
	Customers         int `json:"customers"`
	Metrics           int `json:"metrics"`
	BrokenMetrics     int `json:"brokenMetrics"`
	StaleMetrics      int `json:"staleMetrics"`
	UpdatesWritten    int `json:"updatesWritten"`
}

var (
	bakeryItems   = []string{"Bánh mì thịt", "Bánh bông lan", "Croissant", "Bánh su kem", "Bánh flan", "Sourdough"}
	rfmSegments   = []string{"Champions", "Loyal", "Potential", "At Risk", "Hibernating"}
	loyaltyStages = []string{"new", "regular", "loyal", "champion", "dormant"}
	zones         = []string{"District 1", "District 3", "Binh Thanh", "Phu Nhuan", "Thu Duc"}
	statuses      = []string{models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusDelivered, models.OrderStatusCancelled}
)

// Generator produces documents keyed by record key.
type Generator struct {
	faker *gofakeit.Faker
	now   time.Time
	loc   *time.Location
}

func NewGenerator(seed uint64, now time.Time) *Generator {
	loc, err := time.LoadLocation(timeslot.DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return &Generator{faker: gofakeit.New(seed), now: now, loc: loc}
}

func (g *Generator) chance(percent int) bool {
	return g.faker.Number(1, 100) <= percent
}

// orderTime picks a moment in the last 90 days, mostly inside opening hours.
func (g *Generator) orderTime() time.Time {
	day := g.now.In(g.loc).AddDate(0, 0, -g.faker.Number(0, 89))
	hour := g.faker.Number(10, 19)
	if g.chance(10) {
		hour = g.faker.RandomInt([]int{7, 8, 9, 20, 21})
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, g.faker.Number(0, 59), g.faker.Number(0, 59), 0, g.loc)
}

// Orders returns n order documents. About a third already carry a slot and
// one in twenty has no orderDate.
func (g *Generator) Orders(n int) map[string]map[string]any {
	docs := make(map[string]map[string]any, n)
	for i := 0; i < n; i++ {
		at := g.orderTime()
		o := models.Order{
			ID:            fmt.Sprintf("DH%06d", i+1),
			CustomerName:  g.faker.Name(),
			CustomerPhone: g.phone(),
			Status:        g.faker.RandomString(statuses),
			Total:         float64(g.faker.Number(2, 60) * 5000),
		}
		switch {
		case g.chance(5):
		case g.chance(33):
			date := cftime.FromTime(at)
			o.OrderDate = &date
			o.DeliveryTimeSlot = timeslot.ForHour(at.Hour())
		default:
			date := cftime.FromTime(at)
			o.OrderDate = &date
		}
		doc := o.Document()
		doc["items"] = g.faker.RandomString(bakeryItems)
		docs[fmt.Sprintf("-O%07d", i)] = doc
	}
	return docs
}

func (g *Generator) phone() string {
	return "09" + g.faker.Numerify("########")
}

// Customers returns customer documents and the metrics keyed by phone.
// Roughly one customer in six has no metrics.
func (g *Generator) Customers(n int) (customers, metrics map[string]map[string]any) {
	customers = make(map[string]map[string]any, n)
	metrics = make(map[string]map[string]any)
	for i := 0; i < n; i++ {
		phone := g.phone()
		customers[fmt.Sprintf("-C%07d", i)] = map[string]any{
			"name":    g.faker.Name(),
			"phone":   phone,
			"address": g.faker.Street(),
		}
		if g.chance(84) {
			metrics[phone] = g.metrics()
		}
	}
	return customers, metrics
}

func (g *Generator) metrics() map[string]any {
	orders := g.faker.Number(1, 80)
	spent := float64(orders * g.faker.Number(4, 40) * 5000)
	computed := g.now.Add(-time.Duration(g.faker.Number(5, 600)) * time.Minute)

	doc := map[string]any{
		models.MetricTotalOrders: float64(orders),
		models.MetricTotalSpent:  spent,
		models.MetricAOV:         spent / float64(orders),
		models.MetricCLV:         spent * g.faker.Float64Range(1.2, 3),
		models.MetricHealthScore: float64(g.faker.Number(0, 100)),
		models.MetricRFM: map[string]any{
			"R":       float64(g.faker.Number(1, 5)),
			"F":       float64(g.faker.Number(1, 5)),
			"M":       float64(g.faker.Number(1, 5)),
			"segment": g.faker.RandomString(rfmSegments),
		},
		models.MetricCLVSegment: g.faker.RandomString(models.CLVSegments),
		models.MetricChurnRisk: map[string]any{
			"level": g.faker.RandomString(models.ChurnRiskLevels),
			"score": float64(g.faker.Number(0, 100)),
		},
		models.MetricLoyaltyStage: map[string]any{"stage": g.faker.RandomString(loyaltyStages)},
		models.MetricLocation:     map[string]any{"zone": g.faker.RandomString(zones)},
		models.MetricComputedAt:   computed.UTC().Format(time.RFC3339),
	}

	if g.chance(10) {
		doc[models.MetricComputedAt] = g.now.Add(-time.Duration(g.faker.Number(25, 96)) * time.Hour).UTC().Format(time.RFC3339)
	}
	if g.chance(8) {
		switch g.faker.Number(1, 4) {
		case 1:
			delete(doc, models.MetricChurnRisk)
		case 2:
			doc[models.MetricHealthScore] = float64(g.faker.Number(101, 200))
		case 3:
			doc[models.MetricCLVSegment] = "Gold"
		case 4:
			doc[models.MetricRFM].(map[string]any)["R"] = float64(6)
		}
	}
	return doc
}

// Flatten turns documents into per-field update paths.
func Flatten(collection string, docs map[string]map[string]any) map[string]any {
	updates := make(map[string]any)
	for key, doc := range docs {
		for field, value := range doc {
			updates[types.JoinPath(collection, key, field)] = value
		}
	}
	return updates
}

// Populate generates a dataset and writes it in committer batches.
func Populate(ctx context.Context, w types.BatchWriter, opts Options) (*Summary, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	g := NewGenerator(opts.Seed, now)
	orders := g.Orders(opts.Orders)
	customers, metrics := g.Customers(opts.Customers)

	summary := &Summary{Orders: len(orders), Customers: len(customers), Metrics: len(metrics)}
	for _, doc := range orders {
		if timeslot.HasSlot(doc) {
			summary.OrdersWithSlot++
		}
		if _, ok := doc[models.FieldOrderDate]; !ok {
			summary.OrdersWithoutDate++
		}
	}
	for _, doc := range metrics {
		check := integrity.ValidateMetrics(doc, now)
		if len(check.Errors) > 0 {
			summary.BrokenMetrics++
		}
		if check.Stale {
			summary.StaleMetrics++
		}
	}

	updates := Flatten(models.CollectionOrders, orders)
	for path, v := range Flatten(models.CollectionCustomers, customers) {
		updates[path] = v
	}
	for path, v := range Flatten(models.CollectionCustomerMetrics, metrics) {
		updates[path] = v
	}

	result, err := backfill.Commit(ctx, w, updates, backfill.CommitOptions{BatchSize: batchSize})
	if result != nil {
		summary.UpdatesWritten = result.Applied
	}
	if err != nil {
		return summary, err
	}
	return summary, nil
}

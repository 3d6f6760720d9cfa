package integrity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matthieukhl/bakehouse/internal/metrics"
	"github.com/matthieukhl/bakehouse/internal/models"
	"github.com/matthieukhl/bakehouse/internal/types"
)

// JobName labels the duration metric.
const JobName = "check-integrity"

// Loader reads the customers and metrics collections.
type Loader struct {
	Reader              types.Reader
	CustomersCollection string
	MetricsCollection   string
}

// Snapshot is what one check runs against.
type Snapshot struct {
	// Customers are ordered by record key.
	Customers []models.Customer
	Metrics   map[string]map[string]any
}

// Load issues both reads concurrently. A failure of either aborts the load.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	customersCollection := l.CustomersCollection
	if customersCollection == "" {
		customersCollection = models.CollectionCustomers
	}
	metricsCollection := l.MetricsCollection
	if metricsCollection == "" {
		metricsCollection = models.CollectionCustomerMetrics
	}

	var rawCustomers, metricDocs map[string]map[string]any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawCustomers, err = l.Reader.ReadAll(gctx, customersCollection)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", customersCollection, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		metricDocs, err = l.Reader.ReadAll(gctx, metricsCollection)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", metricsCollection, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rawCustomers))
	for k := range rawCustomers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	customers := make([]models.Customer, 0, len(keys))
	for _, k := range keys {
		customers = append(customers, models.CustomerFromRecord(k, rawCustomers[k]))
	}

	if metricDocs == nil {
		metricDocs = map[string]map[string]any{}
	}

	return &Snapshot{Customers: customers, Metrics: metricDocs}, nil
}

// Checker loads a snapshot and validates it.
type Checker struct {
	Loader    *Loader
	Validator *Validator
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

func (c *Checker) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	snap, err := c.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("integrity data loaded",
		zap.Int("customers", len(snap.Customers)),
		zap.Int("metrics", len(snap.Metrics)))

	validator := c.Validator
	if validator == nil {
		validator = &Validator{}
	}
	report := validator.Validate(snap.Customers, snap.Metrics)
	report.Duration = time.Since(start)

	c.Metrics.ObserveIntegrity(report.ValidStructures, report.InvalidStructures, len(report.Missing), len(report.Stale))
	c.Metrics.ObserveJob(JobName, report.Duration)

	log.Info("integrity check finished",
		zap.String("verdict", report.Verdict()),
		zap.Int("missing", len(report.Missing)),
		zap.Int("invalid", len(report.Invalid)),
		zap.Int("stale", len(report.Stale)))

	return report, nil
}

package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger and lottery
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	drawsCounter                 metric.Int64Counter
	stockRetriesCounter          metric.Int64Counter
	fillerWeightGauge            metric.Float64Gauge
	ledgerEntriesCounter         metric.Int64Counter
	ledgerRevokesCounter         metric.Int64Counter
	ledgerDriftCounter           metric.Int64Counter
	storeConflictsCounter        metric.Int64Counter
	useCaseDurationHist          metric.Float64Histogram
	natsMessagesReceivedCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("welcome-system")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.drawsCounter, err = mp.meter.Int64Counter(
		DrawsTotal,
		metric.WithDescription("Total number of lottery draws by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draws counter: %w", err)
	}

	mp.stockRetriesCounter, err = mp.meter.Int64Counter(
		DrawStockRetries,
		metric.WithDescription("Draw re-evaluations caused by a prize selling out mid-draw"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create stock retries counter: %w", err)
	}

	mp.fillerWeightGauge, err = mp.meter.Float64Gauge(
		PrizePoolFillerRate,
		metric.WithDescription("Current derived filler weight in percentage points"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return fmt.Errorf("failed to create filler weight gauge: %w", err)
	}

	mp.ledgerEntriesCounter, err = mp.meter.Int64Counter(
		LedgerEntriesTotal,
		metric.WithDescription("Total number of appended ledger entries by kind"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entries counter: %w", err)
	}

	mp.ledgerRevokesCounter, err = mp.meter.Int64Counter(
		LedgerRevokesTotal,
		metric.WithDescription("Total number of revoked ledger entries by revoked kind"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger revokes counter: %w", err)
	}

	mp.ledgerDriftCounter, err = mp.meter.Int64Counter(
		LedgerDriftTotal,
		metric.WithDescription("Users found with a balance that differs from their ledger"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger drift counter: %w", err)
	}

	mp.storeConflictsCounter, err = mp.meter.Int64Counter(
		StoreConflictsTotal,
		metric.WithDescription("Transactions retried after a store conflict"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create store conflicts counter: %w", err)
	}

	mp.useCaseDurationHist, err = mp.meter.Float64Histogram(
		UseCaseDuration,
		metric.WithDescription("Duration of a use case including retries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create use case duration histogram: %w", err)
	}

	mp.natsMessagesReceivedCounter, err = mp.meter.Int64Counter(
		NATSMessagesReceivedTotal,
		metric.WithDescription("Total number of NATS messages received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages received counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordDraw records a draw outcome
func (mp *MetricsProvider) RecordDraw(outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.drawsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)),
	)
}

// RecordStockRetries records how many extra pool evaluations a draw needed
func (mp *MetricsProvider) RecordStockRetries(retries int64) {
	if !mp.isEnabled() || retries <= 0 {
		return
	}
	mp.stockRetriesCounter.Add(context.Background(), retries)
}

// RecordFillerWeight records the latest derived filler weight
func (mp *MetricsProvider) RecordFillerWeight(weight float64) {
	if !mp.isEnabled() {
		return
	}
	mp.fillerWeightGauge.Record(context.Background(), weight)
}

// RecordLedgerEntry records an appended ledger entry
func (mp *MetricsProvider) RecordLedgerEntry(kind string) {
	if !mp.isEnabled() {
		return
	}
	mp.ledgerEntriesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, kind)),
	)
}

// RecordRevoke records a revoke of an entry of the given kind
func (mp *MetricsProvider) RecordRevoke(revokedKind string) {
	if !mp.isEnabled() {
		return
	}
	mp.ledgerRevokesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, revokedKind)),
	)
}

// RecordBalanceDiscrepancies records users found out of sync by an audit
func (mp *MetricsProvider) RecordBalanceDiscrepancies(count int) {
	if !mp.isEnabled() || count == 0 {
		return
	}
	mp.ledgerDriftCounter.Add(context.Background(), int64(count))
}

// RecordStoreConflict records a retried transaction
func (mp *MetricsProvider) RecordStoreConflict(useCase string) {
	if !mp.isEnabled() {
		return
	}
	mp.storeConflictsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelUseCase, useCase)),
	)
}

// MeasureUseCase returns a function that records the use case duration
// Usage:
//
//	defer mp.MeasureUseCase("draw")()
func (mp *MetricsProvider) MeasureUseCase(useCase string) func() {
	start := time.Now()
	return func() {
		if !mp.isEnabled() {
			return
		}
		mp.useCaseDurationHist.Record(context.Background(), time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String(LabelUseCase, useCase)),
		)
	}
}

// RecordNATSMessageReceived records a NATS message being received
func (mp *MetricsProvider) RecordNATSMessageReceived(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled reports whether instruments exist. A nil provider is disabled.
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider. It is nil until
// InitializeGlobalMetrics runs; every Record method accepts a nil receiver.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}

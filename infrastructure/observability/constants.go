package observability

// Metric name prefixes
const (
	MetricPrefix = "welcome_system"
)

// Metric names
const (
	// Lottery metrics
	DrawsTotal          = MetricPrefix + ".lottery.draws_total"
	DrawStockRetries    = MetricPrefix + ".lottery.stock_retries_total"
	PrizePoolFillerRate = MetricPrefix + ".lottery.filler_weight"

	// Ledger metrics
	LedgerEntriesTotal = MetricPrefix + ".ledger.entries_total"
	LedgerRevokesTotal = MetricPrefix + ".ledger.revokes_total"
	LedgerDriftTotal   = MetricPrefix + ".ledger.balance_discrepancies_total"

	// Store metrics
	StoreConflictsTotal = MetricPrefix + ".store.conflicts_total"
	UseCaseDuration     = MetricPrefix + ".usecase.duration"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
	LabelUseCase   = "use_case"
)

// Draw outcomes
const (
	OutcomePrize  = "prize"
	OutcomeFiller = "filler"
	OutcomeError  = "error"
)

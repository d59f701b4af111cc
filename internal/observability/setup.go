package observability

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Logger is the ops-side structured logger.
	Logger = zap.NewNop()

	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamguard",
			Name:      "commands_total",
			Help:      "Total number of handled bot commands",
		},
		[]string{"command", "outcome"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scamguard",
			Name:      "command_duration_seconds",
			Help:      "Time spent handling bot commands",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	moderationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamguard",
			Name:      "moderation_actions_total",
			Help:      "Total number of recorded moderation actions",
		},
		[]string{"action"},
	)

	autoBansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scamguard",
			Name:      "auto_bans_total",
			Help:      "Total number of bans issued by warn escalation",
		},
	)

	storageRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamguard",
			Name:      "storage_retries_total",
			Help:      "Total number of retried storage operations",
		},
		[]string{"op"},
	)

	ledgerRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "scamguard",
			Name:      "ledger_records",
			Help:      "Number of records per table",
		},
		[]string{"table"},
	)
)

// Init wires the zap logger, registers metrics and installs the tracer
// provider. The returned func flushes both.
func Init(ctx context.Context) (func(context.Context) error, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	Logger = logger

	registerOnce.Do(func() {
		prometheus.MustRegister(
			commandsTotal,
			commandDuration,
			moderationActionsTotal,
			autoBansTotal,
			storageRetriesTotal,
			ledgerRecords,
		)
	})

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		_ = Logger.Sync()
		return tp.Shutdown(ctx)
	}, nil
}

// StartCommand returns a func recording the command's duration and outcome.
func StartCommand(command string) func(outcome string) {
	timer := prometheus.NewTimer(commandDuration.WithLabelValues(command))
	return func(outcome string) {
		timer.ObserveDuration()
		commandsTotal.WithLabelValues(command, outcome).Inc()
	}
}

func RecordModerationAction(action string) {
	moderationActionsTotal.WithLabelValues(action).Inc()
}

func RecordAutoBan() {
	autoBansTotal.Inc()
}

func RecordStorageRetry(op string) {
	storageRetriesTotal.WithLabelValues(op).Inc()
}

func SetLedgerRecords(table string, n int) {
	ledgerRecords.WithLabelValues(table).Set(float64(n))
}

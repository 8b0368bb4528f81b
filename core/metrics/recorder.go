package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/siherrmann/grounder/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/siherrmann/grounder"

// Sink persists search records
type Sink interface {
	InsertSearchRecord(ctx context.Context, record *model.SearchRecord) error
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the logger
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMeter sets the meter the instruments are created on. Default is the global meter provider.
func WithMeter(meter metric.Meter) RecorderOption {
	return func(r *Recorder) {
		if meter != nil {
			r.meter = meter
		}
	}
}

// WithPoolSize sets the number of concurrent sink writes. Default 4.
func WithPoolSize(size int) RecorderOption {
	return func(r *Recorder) {
		if size > 0 {
			r.poolSize = size
		}
	}
}

// WithWriteTimeout bounds a single sink write. Default 5s.
func WithWriteTimeout(timeout time.Duration) RecorderOption {
	return func(r *Recorder) {
		if timeout > 0 {
			r.writeTimeout = timeout
		}
	}
}

// Recorder emits metric instruments for every query and hands the search
// record to the sink on a non blocking worker pool. Record never blocks and
// never fails, sink errors and overload are logged and counted.
type Recorder struct {
	sink         Sink
	logger       *slog.Logger
	meter        metric.Meter
	poolSize     int
	writeTimeout time.Duration

	pool     *ants.Pool
	inflight sync.WaitGroup

	queries       metric.Int64Counter
	degraded      metric.Int64Counter
	dropped       metric.Int64Counter
	tokens        metric.Int64Counter
	stageDuration metric.Float64Histogram
	adherence     metric.Float64Histogram
	cost          metric.Float64Counter
}

// NewRecorder creates a recorder. sink may be nil to only emit instruments.
func NewRecorder(sink Sink, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		sink:         sink,
		logger:       slog.Default(),
		poolSize:     4,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.meter == nil {
		r.meter = otel.Meter(instrumentationName)
	}

	var err error
	r.pool, err = ants.NewPool(r.poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	err = r.createInstruments()
	if err != nil {
		r.pool.Release()
		return nil, err
	}

	return r, nil
}

func (r *Recorder) createInstruments() error {
	var err error
	r.queries, err = r.meter.Int64Counter("grounder.queries",
		metric.WithDescription("Number of answered queries by policy, verdict and terminal state"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}
	r.degraded, err = r.meter.Int64Counter("grounder.retrievers.degraded",
		metric.WithDescription("Number of retriever runs that degraded to an empty result"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return err
	}
	r.dropped, err = r.meter.Int64Counter("grounder.records.dropped",
		metric.WithDescription("Number of search records not handed to the sink"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}
	r.tokens, err = r.meter.Int64Counter("grounder.tokens",
		metric.WithDescription("Language model tokens used"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return err
	}
	r.stageDuration, err = r.meter.Float64Histogram("grounder.stage.duration",
		metric.WithDescription("Duration of the pipeline stages in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return err
	}
	r.adherence, err = r.meter.Float64Histogram("grounder.adherence",
		metric.WithDescription("Share of response tokens found in the fused context"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0),
	)
	if err != nil {
		return err
	}
	r.cost, err = r.meter.Float64Counter("grounder.cost",
		metric.WithDescription("Estimated cost of the answered queries"),
	)
	return err
}

// Record emits the instruments for record and submits it to the sink.
func (r *Recorder) Record(ctx context.Context, record *model.SearchRecord) {
	policy := attribute.String("policy", string(record.Policy.Type))
	r.queries.Add(ctx, 1, metric.WithAttributes(
		policy,
		attribute.String("verdict", string(record.Verdict)),
		attribute.String("state", string(record.FinalState)),
	))

	stages := []struct {
		name     string
		duration time.Duration
	}{
		{"policy", record.Timings.Policy},
		{"retrieval", record.Timings.Retrieval},
		{"fusion", record.Timings.Fusion},
		{"generation", record.Timings.Generation},
		{"total", record.Timings.Total},
	}
	for _, s := range stages {
		r.stageDuration.Record(ctx, s.duration.Seconds(), metric.WithAttributes(policy, attribute.String("stage", s.name)))
	}

	for _, status := range record.Retrievers {
		if status.Degraded {
			r.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", string(status.Strategy))))
		}
	}

	if record.Attempts > 0 {
		r.tokens.Add(ctx, int64(record.Metrics.TokensUsed), metric.WithAttributes(policy))
		r.adherence.Record(ctx, record.Metrics.Adherence, metric.WithAttributes(policy))
		r.cost.Add(ctx, record.Metrics.Cost, metric.WithAttributes(policy))
	}

	if r.sink == nil {
		return
	}

	r.inflight.Add(1)
	err := r.pool.Submit(func() {
		defer r.inflight.Done()
		r.write(record)
	})
	if err != nil {
		r.inflight.Done()
		r.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", dropReason(err))))
		r.logger.Warn("Search record dropped", "rid", record.RID, "error", err)
	}
}

func (r *Recorder) write(record *model.SearchRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	err := r.sink.InsertSearchRecord(ctx, record)
	if err != nil {
		r.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "sink")))
		r.logger.Error("Error writing search record", "rid", record.RID, "error", err)
		return
	}
	r.logger.Debug("Search record written", "rid", record.RID)
}

// Flush waits until all submitted records are written.
func (r *Recorder) Flush() {
	r.inflight.Wait()
}

// Close flushes pending records and releases the worker pool.
func (r *Recorder) Close() {
	r.Flush()
	r.pool.Release()
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ants.ErrPoolOverload):
		return "overload"
	case errors.Is(err, ants.ErrPoolClosed):
		return "closed"
	}
	return "submit"
}

package ledger

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentedClient wraps a Client and counts every ledger operation by
// name and outcome, with a latency histogram. It implements Client itself so
// the decoration is invisible to callers.
type InstrumentedClient struct {
	next     Client
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Instrument registers the ledger metrics on reg and returns the wrapped
// client.
func Instrument(next Client, reg prometheus.Registerer) (*InstrumentedClient, error) {
	c := &InstrumentedClient{
		next: next,
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total ledger client operations by outcome.",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Ledger client operation latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	if err := reg.Register(c.ops); err != nil {
		return nil, err
	}
	if err := reg.Register(c.duration); err != nil {
		return nil, err
	}
	return c, nil
}

var _ Client = (*InstrumentedClient)(nil)

func (c *InstrumentedClient) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ops.WithLabelValues(op, outcome).Inc()
	c.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (c *InstrumentedClient) Record(ctx context.Context, id, hash string) (string, error) {
	start := time.Now()
	ref, err := c.next.Record(ctx, id, hash)
	c.observe("record", start, err)
	return ref, err
}

func (c *InstrumentedClient) Verify(ctx context.Context, id, expected string) (bool, error) {
	start := time.Now()
	ok, err := c.next.Verify(ctx, id, expected)
	c.observe("verify", start, err)
	return ok, err
}

func (c *InstrumentedClient) Read(ctx context.Context, id string) (string, error) {
	start := time.Now()
	hash, err := c.next.Read(ctx, id)
	c.observe("read", start, err)
	return hash, err
}

func (c *InstrumentedClient) BatchRecord(ctx context.Context, items []BatchItem) (string, error) {
	start := time.Now()
	ref, err := c.next.BatchRecord(ctx, items)
	c.observe("batch_record", start, err)
	return ref, err
}

func (c *InstrumentedClient) Exists(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	ok, err := c.next.Exists(ctx, id)
	c.observe("exists", start, err)
	return ok, err
}

func (c *InstrumentedClient) NetworkInfo(ctx context.Context) (NetworkInfo, error) {
	return c.next.NetworkInfo(ctx)
}

func (c *InstrumentedClient) HealthCheck(ctx context.Context) bool {
	return c.next.HealthCheck(ctx)
}

package warden

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// dispatcher owns the batch queue. It accumulates entries from the intake
// channel in submission order and flushes them as one batch when either the
// queue reaches BatchSize or the interval timer armed at the first entry
// fires, whichever happens first. Flushed batches are handed to a single
// delivery goroutine through a bounded queue, so batches reach the sink in
// submission order and the accumulation loop never waits on the sink itself.
// On Close remaining entries are drained as a final batch and further
// enqueues are rejected.
type dispatcher struct {
	cfg   AuditConfig
	sink  Sink
	guard *failureGuard
	stats *Metrics

	ch       chan Entry
	flushReq chan chan struct{}
	done     chan struct{}
	batches  chan []Entry

	wg        sync.WaitGroup // accumulation loop
	delivery  sync.WaitGroup // delivery goroutine
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newDispatcher(cfg AuditConfig, sink Sink, guard *failureGuard, stats *Metrics) *dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &dispatcher{
		cfg:      cfg,
		sink:     sink,
		guard:    guard,
		stats:    stats,
		ch:       make(chan Entry, cfg.BufferSize),
		flushReq: make(chan chan struct{}),
		done:     make(chan struct{}),
		batches:  make(chan []Entry, maxPendingFlushes),
	}

	d.wg.Add(1)
	go d.run()

	d.delivery.Add(1)
	go d.deliver()

	return d
}

func (d *dispatcher) run() {
	defer d.wg.Done()

	timer := time.NewTimer(d.cfg.BatchInterval)
	if !timer.Stop() {
		<-timer.C
	}
	timerArmed := false

	var batch []Entry

	disarm := func() {
		if timerArmed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timerArmed = false
	}
	flush := func() {
		if len(batch) == 0 {
			return
		}
		out := batch
		batch = nil
		d.dispatch(out)
	}

	// drainIntake moves every entry already accepted at intake into the
	// batch, so a forced flush or the final drain cannot strand an entry
	// whose Enqueue has returned.
	drainIntake := func() {
		for {
			select {
			case entry := <-d.ch:
				batch = append(batch, entry)
			default:
				return
			}
		}
	}

	for {
		select {
		case entry := <-d.ch:
			if len(batch) == 0 {
				timer.Reset(d.cfg.BatchInterval)
				timerArmed = true
			}
			batch = append(batch, entry)
			if len(batch) >= d.cfg.BatchSize {
				disarm()
				flush()
			}

		case <-timer.C:
			timerArmed = false
			flush()

		case ack := <-d.flushReq:
			disarm()
			drainIntake()
			flush()
			close(ack)

		case <-d.done:
			disarm()
			drainIntake()
			flush()
			return
		}
	}
}

// maxPendingFlushes bounds batches queued for delivery. Without the bound a
// slow sink would never exert backpressure on intake and DropIfFull could
// not engage.
const maxPendingFlushes = 4

// dispatch hands one ordered batch to the delivery goroutine, blocking while
// the delivery queue is full.
func (d *dispatcher) dispatch(batch []Entry) {
	d.batches <- batch
}

// deliver drains the batch queue one batch at a time, preserving submission
// order at the sink. Failures and panics are observed by the guard here,
// never by the accumulation loop or the original caller.
func (d *dispatcher) deliver() {
	defer d.delivery.Done()

	for batch := range d.batches {
		d.guard.Do("flush", func() error {
			if len(batch) == 1 {
				return d.sink.Emit(context.Background(), batch[0])
			}
			return d.sink.EmitBatch(context.Background(), batch)
		})
		d.stats.Inc(MetricBatchesFlushed)
	}
}

// Enqueue appends an entry to the batch queue. After Close, and when
// DropIfFull is set and the intake buffer is full, the entry is counted and
// discarded; the caller is never blocked past the configured policy and
// never observes an error.
func (d *dispatcher) Enqueue(ctx context.Context, entry Entry) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- entry:
			d.stats.Inc(MetricEntriesQueued)
		case <-d.done:
		default:
			d.dropped.Add(1)
			d.stats.Inc(MetricEntriesDropped)
		}
		return
	}

	select {
	case d.ch <- entry:
		d.stats.Inc(MetricEntriesQueued)
	case <-ctx.Done():
		d.dropped.Add(1)
		d.stats.Inc(MetricEntriesDropped)
	case <-d.done:
	}
}

// Flush forces the current batch, including entries already accepted at
// intake, to be handed to the sink regardless of thresholds and returns once
// dispatch has been initiated.
func (d *dispatcher) Flush(ctx context.Context) error {
	if d == nil || d.closed.Load() {
		return ErrLoggerClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ack := make(chan struct{})
	select {
	case d.flushReq <- ack:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrLoggerClosed
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains outstanding entries as a final batch, waits for every
// initiated delivery to complete, and rejects further enqueues. Idempotent.
func (d *dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
		close(d.batches)
		d.delivery.Wait()
	})
}

// Dropped reports how many entries were discarded at intake.
func (d *dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	warden "github.com/wardenhq/warden-go"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		ops         = flag.Int("ops", 200000, "log calls per phase (info + audit)")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		batchSize   = flag.Int("batch-size", 25, "dispatcher batch size")
		interval    = flag.Duration("batch-interval", 5*time.Second, "dispatcher flush interval")
		bufferSize  = flag.Int("buffer-size", 4096, "intake buffer capacity")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		stream      = flag.String("stream", "audit:trail", "redis stream the sink appends to")
	)
	flag.Parse()

	if *ops <= 0 || *concurrency <= 0 || *batchSize <= 0 || *bufferSize <= 0 {
		fmt.Fprintln(os.Stderr, "ops, concurrency, batch-size, and buffer-size must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := warden.Config{
		Audit: warden.AuditConfig{
			BatchSize:     *batchSize,
			BatchInterval: *interval,
			BufferSize:    *bufferSize,
			DropIfFull:    true,
		},
		Metrics: warden.MetricsConfig{Enabled: true},
	}

	logger, err := warden.New().
		WithConfig(cfg).
		WithSink(warden.NewRedisStreamSink(client, *stream, 0)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger build failed: %v\n", err)
		os.Exit(1)
	}

	infoStats := runInfoPhase(logger, *ops, *concurrency)
	auditStats := runAuditPhase(logger, *ops, *concurrency)

	drainStart := time.Now()
	logger.Close()
	drain := time.Since(drainStart)

	fmt.Println("---- results ----")
	printStats("info", infoStats)
	printStats("audit", auditStats)
	fmt.Printf("final drain: %s\n", drain.Round(time.Millisecond))

	snap := logger.Metrics().Snapshot()
	fmt.Printf("queued=%d dropped=%d batches=%d failures=%d\n",
		snap.Counters[warden.MetricEntriesQueued],
		snap.Counters[warden.MetricEntriesDropped],
		snap.Counters[warden.MetricBatchesFlushed],
		snap.Counters[warden.MetricDeliveryFailures],
	)

	if n, err := client.XLen(context.Background(), *stream).Result(); err == nil {
		fmt.Printf("stream length: %d\n", n)
	}
}

func runInfoPhase(logger *warden.Logger, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand, i int) {
		ctx := warden.WithLoggerContext(context.Background(), warden.Context{
			UserID:        fmt.Sprintf("user-%d", r.Intn(1000)),
			CorrelationID: warden.NewCorrelationID(),
		})
		logger.Info(ctx, "request served", map[string]any{
			"route":    "/api/v1/orders",
			"status":   200,
			"duration": r.Intn(250),
			// Exercises the masking path on every call.
			"api_key": "sk-not-a-real-key",
		})
	})
}

func runAuditPhase(logger *warden.Logger, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand, i int) {
		ctx := warden.WithLoggerContext(context.Background(), warden.Context{
			UserID: fmt.Sprintf("user-%d", r.Intn(1000)),
		})
		logger.Audit(ctx, "order.update", "order", fmt.Sprintf("order-%d", i),
			map[string]any{"status": "pending", "card_number": "4111111111111111"},
			map[string]any{"status": "shipped"},
		)
	})
}

func runPhase(ops, concurrency int, call func(r *rand.Rand, i int)) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				call(r, i)
				d := time.Since(t0)
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies)
}

type phaseStats struct {
	total   time.Duration
	ops     int
	p50     time.Duration
	p95     time.Duration
	p99     time.Duration
	opsPerS float64
}

func computeStats(total time.Duration, samples []time.Duration) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

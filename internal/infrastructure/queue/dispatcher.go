package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/api/metrics"
	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	maxTries       = 5
)

// CounterApplier applies one counter event to the store.
type CounterApplier interface {
	ApplyCounterEvent(ctx context.Context, ev ports.CounterEvent) error
}

// Dispatcher routes counter events to a fixed set of workers using consistent
// hashing on the ad id. Increments are commutative, so sharding only bounds
// concurrent writes per document.
type Dispatcher struct {
	mu      sync.RWMutex
	closed  bool
	workers []chan ports.CounterEvent
	wg      sync.WaitGroup

	applier CounterApplier
	backoff func() backoff.BackOff
	log     zerolog.Logger
}

var _ ports.CounterSink = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, applier CounterApplier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.CounterEvent, numWorkers),
		applier: applier,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		log: log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.CounterEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// after draining their queue once Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an event to the worker responsible for its ad. It never
// blocks: when the shard is full the event is dropped and logged.
func (d *Dispatcher) Enqueue(ev ports.CounterEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	idx := d.shardIndex(ev.AdID)
	select {
	case d.workers[idx] <- ev:
		metrics.CounterQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.CounterEventsTotal.WithLabelValues(string(ev.Kind), "dropped").Inc()
		d.log.Warn().Str("ad_id", ev.AdID).Str("counter", string(ev.Kind)).Int("worker_id", idx).Msg("counter queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be applied.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps an ad id deterministically to a worker index.
func (d *Dispatcher) shardIndex(adID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(adID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.CounterEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			metrics.CounterQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.apply(ctx, id, ev)
		}
	}
}

func (d *Dispatcher) apply(ctx context.Context, worker int, ev ports.CounterEvent) {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := d.applier.ApplyCounterEvent(ctx, ev)
		if err != nil && domain.IsPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(d.backoff()),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.log.Warn().Err(err).
				Str("ad_id", ev.AdID).
				Str("counter", string(ev.Kind)).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("counter increment failed, retrying")
		}),
	)
	if err != nil {
		metrics.CounterEventsTotal.WithLabelValues(string(ev.Kind), "failed").Inc()
		d.log.Error().Err(err).
			Str("ad_id", ev.AdID).
			Str("counter", string(ev.Kind)).
			Int("worker_id", worker).
			Msg("counter increment abandoned")
		return
	}
	metrics.CounterEventsTotal.WithLabelValues(string(ev.Kind), "applied").Inc()
}

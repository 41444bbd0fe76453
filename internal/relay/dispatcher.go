package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	alog "github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/metrics"
	"github.com/Johndevils/Arsynox-streaming/internal/resilience"
)

// Sender delivers one formatted message.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// DispatcherConfig tunes delivery. Zero values select defaults.
type DispatcherConfig struct {
	ChatID      string
	PlayerBase  string
	QueueSize   int
	RateLimit   float64 // messages per second
	Burst       int
	SendTimeout time.Duration
	// After BreakerThreshold consecutive send failures, sends fail fast for
	// BreakerReset before a single trial send is attempted.
	BreakerThreshold int
	BreakerReset     time.Duration
}

const (
	defaultQueueSize   = 64
	defaultRateLimit   = 1
	defaultBurst       = 5
	defaultSendTimeout = 10 * time.Second
)

type job struct {
	ev   Event
	done func(Outcome)
}

// Dispatcher queues events and delivers them on a single worker goroutine.
// Report never blocks; the relay is never on the playback path.
type Dispatcher struct {
	sender  Sender
	cfg     DispatcherConfig
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger

	queue chan job

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher builds a dispatcher. A nil sender or empty chat ID disables delivery.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if c, ok := sender.(*Client); ok && !c.Enabled() {
		sender = nil
	}
	return &Dispatcher{
		sender:  sender,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		breaker: resilience.NewCircuitBreaker("relay", cfg.BreakerThreshold, cfg.BreakerReset),
		logger:  alog.WithComponent("relay"),
		queue:   make(chan job, cfg.QueueSize),
	}
}

// Enabled reports whether events are delivered at all.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.sender != nil && d.cfg.ChatID != ""
}

// Report enqueues ev and calls done with the outcome once it is known. done may run
// on the caller's goroutine (disabled relay, full queue) or on the worker.
func (d *Dispatcher) Report(ev Event, done func(Outcome)) {
	if done == nil {
		done = func(Outcome) {}
	}
	if !d.Enabled() {
		d.finish(ev, ErrRelayDisabled, done)
		return
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.finish(ev, ErrDispatcherClosed, done)
		return
	}
	select {
	case d.queue <- job{ev: ev, done: done}:
		metrics.SetRelayQueueDepth(len(d.queue))
		d.mu.RUnlock()
	default:
		d.mu.RUnlock()
		d.finish(ev, ErrQueueFull, done)
	}
}

// Deliver reports ev and waits for the outcome or ctx expiry.
func (d *Dispatcher) Deliver(ctx context.Context, ev Event) (Outcome, error) {
	ch := make(chan Outcome, 1)
	d.Report(ev, func(o Outcome) { ch <- o })
	select {
	case o := <-ch:
		return o, nil
	case <-ctx.Done():
		return OutcomeFailed, ctx.Err()
	}
}

// Run delivers queued events until ctx is cancelled. Events still queued on exit
// fail with ErrDispatcherClosed. Run must be called at most once.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info().
		Str(alog.FieldEvent, "relay.started").
		Bool("enabled", d.Enabled()).
		Int("queue_size", d.cfg.QueueSize).
		Msg("relay dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return nil
		case j := <-d.queue:
			metrics.SetRelayQueueDepth(len(d.queue))
			d.deliver(ctx, j)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	if err := d.limiter.Wait(ctx); err != nil {
		d.finish(j.ev, ErrDispatcherClosed, j.done)
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	err := d.breaker.Execute(func() error {
		return d.sender.SendMessage(sendCtx, d.cfg.ChatID, FormatMessage(j.ev, d.cfg.PlayerBase))
	})
	d.finish(j.ev, err, j.done)
}

func (d *Dispatcher) shutdown() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	for {
		select {
		case j := <-d.queue:
			d.finish(j.ev, ErrDispatcherClosed, j.done)
		default:
			metrics.SetRelayQueueDepth(0)
			d.logger.Info().Str(alog.FieldEvent, "relay.stopped").Msg("relay dispatcher stopped")
			return
		}
	}
}

func (d *Dispatcher) finish(ev Event, err error, done func(Outcome)) {
	o := OutcomeFor(err)
	metrics.RecordRelayOutcome(string(o))

	switch {
	case err == nil:
		d.logger.Info().
			Str(alog.FieldEvent, "relay.delivered").
			Str(alog.FieldEventID, ev.ID).
			Str(alog.FieldStreamURL, ev.URL).
			Str(alog.FieldOutcome, string(o)).
			Msg("stream relayed")
	case errors.Is(err, ErrRelayDisabled):
		d.logger.Debug().
			Str(alog.FieldEvent, "relay.skipped").
			Str(alog.FieldEventID, ev.ID).
			Msg("relay disabled")
	default:
		d.logger.Warn().
			Err(err).
			Str(alog.FieldEvent, "relay.failed").
			Str(alog.FieldEventID, ev.ID).
			Str(alog.FieldStreamURL, ev.URL).
			Str(alog.FieldOutcome, string(o)).
			Msg("stream relay failed")
	}
	done(o)
}

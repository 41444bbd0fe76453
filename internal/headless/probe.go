// Package headless drives the player controller against real upstreams so a
// stream can be verified server side: HLS manifests are fetched and decoded,
// direct media is sampled with a ranged GET.
package headless

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	alog "github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/metrics"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	"github.com/Johndevils/Arsynox-streaming/internal/platform/httpx"
	"github.com/Johndevils/Arsynox-streaming/internal/player"
)

// DefaultTimeout bounds one probe.
const DefaultTimeout = 15 * time.Second

// ErrEmptyInput is returned for blank probe input.
var ErrEmptyInput = errors.New("probe: url is required")

// Probe outcomes.
const (
	OutcomePlaying = "playing"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Result is the verdict of one probe.
type Result struct {
	Input     string                   `json:"input"`
	URL       string                   `json:"url"`
	Type      normalize.Classification `json:"type"`
	Engine    player.EngineKind        `json:"engine,omitempty"`
	Outcome   string                   `json:"outcome"`
	State     player.State             `json:"state"`
	Error     string                   `json:"error,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
	Media     *MediaInfo               `json:"media,omitempty"`
	HLS       *HLSInfo                 `json:"hls,omitempty"`
	ElapsedMS int64                    `json:"elapsed_ms"`
}

// Config tunes probing. Zero values select defaults.
type Config struct {
	Timeout          time.Duration
	RangeBytes       int64
	MaxManifestBytes int64
	UserAgent        string
}

// Deps are the collaborators New wires in. Guard should be the proxy host
// guard so probes obey the same outbound policy.
type Deps struct {
	Client     *http.Client
	Guard      Guard
	Normalizer *normalize.Normalizer
	Logger     *zerolog.Logger
}

// Prober runs headless playback attempts.
type Prober struct {
	cfg        Config
	fetch      fetcher
	normalizer *normalize.Normalizer
	logger     zerolog.Logger
}

// New builds a prober.
func New(cfg Config, deps Deps) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := deps.Client
	if client == nil {
		client = httpx.NewClient(cfg.Timeout, httpx.WithTracing(), httpx.WithoutTimeout())
	}
	logger := alog.WithComponent("headless")
	if deps.Logger != nil {
		logger = *deps.Logger
	}
	return &Prober{
		cfg:        cfg,
		fetch:      fetcher{client: client, guard: deps.Guard, userAgent: cfg.UserAgent},
		normalizer: deps.Normalizer,
		logger:     logger,
	}
}

// Probe submits raw to a fresh controller and waits until it plays, fails or
// the timeout expires. Only blank input is an error; every other problem is
// reported in the result.
func (p *Prober) Probe(ctx context.Context, raw string) (Result, error) {
	if normalize.TrimInvisible(raw) == "" {
		return Result{Input: raw}, ErrEmptyInput
	}
	started := time.Now()

	ctx, span := startProbeSpan(ctx)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	report := &Report{}
	media := newMedia(ctx, p.fetch, p.cfg.RangeBytes, report)
	engines := newEngines(ctx, p.fetch, p.cfg.MaxManifestBytes, report)

	logger := alog.WithContext(ctx, p.logger)
	ctrl, err := player.New(player.Options{
		Media:      media,
		Engines:    engines,
		Normalizer: p.normalizer,
		Logger:     &logger,
		Source:     "probe",
	})
	if err != nil {
		return Result{Input: raw}, err
	}
	media.Bind(ctrl.MediaEvents())

	settled := make(chan player.Snapshot, 1)
	unsubscribe := ctrl.Subscribe(func(s player.Snapshot) {
		if s.State != player.StatePlaying && s.State != player.StateError {
			return
		}
		select {
		case settled <- s:
		default:
		}
	})

	ctrl.Submit(raw)

	var (
		snap    player.Snapshot
		outcome string
	)
	select {
	case snap = <-settled:
		outcome = OutcomePlaying
		if snap.State == player.StateError {
			outcome = OutcomeError
		}
	case <-ctx.Done():
		snap = ctrl.Snapshot()
		outcome = OutcomeTimeout
	}

	unsubscribe()
	ctrl.Close()
	cancel()
	media.wait()
	engines.wait()

	mi, hi, reason := report.snapshot()
	res := Result{
		Input:     raw,
		URL:       snap.URL,
		Type:      snap.Type,
		Engine:    snap.Engine,
		Outcome:   outcome,
		State:     snap.State,
		Reason:    reason,
		Media:     mi,
		HLS:       hi,
		ElapsedMS: time.Since(started).Milliseconds(),
	}
	if outcome == OutcomeError {
		res.Error = strings.TrimPrefix(snap.Notice.Message, "Stream Error: ")
	}
	if outcome == OutcomeTimeout && res.Reason == "" {
		res.Reason = "timeout"
	}
	metrics.RecordProbeResult(outcome)
	emitProbeObs(ctx, res)

	logger.Info().
		Str(alog.FieldEvent, "probe.finished").
		Str(alog.FieldStreamURL, res.URL).
		Str(alog.FieldStreamType, string(res.Type)).
		Str(alog.FieldEngine, string(res.Engine)).
		Str(alog.FieldOutcome, outcome).
		Str("reason", res.Reason).
		Int64(alog.FieldDurationMS, res.ElapsedMS).
		Msg("probe finished")
	return res, nil
}

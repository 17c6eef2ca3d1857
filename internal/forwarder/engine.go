// Package forwarder drives synchronization passes while forwarding is on.
// It picks realtime channel events when the device channel can be joined and
// falls back to interval polling otherwise, going back to the channel once
// it can be joined again.
package forwarder

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oggyb/sms-forwarder/internal/metrics"
	"github.com/oggyb/sms-forwarder/internal/retry"
	"github.com/oggyb/sms-forwarder/internal/service"
)

// Mode is the engine state.
type Mode string

const (
	ModeInactive Mode = "inactive"
	ModePolling  Mode = "polling"
	ModeRealtime Mode = "realtime"
)

var allModes = []string{string(ModeInactive), string(ModePolling), string(ModeRealtime)}

var (
	// ErrClosed is returned once the engine has been closed.
	ErrClosed = errors.New("forwarder: engine closed")

	// ErrInactive is returned by Sync while forwarding is off.
	ErrInactive = errors.New("forwarder: forwarding is not active")
)

// DefaultPassTimeout bounds one synchronization pass.
const DefaultPassTimeout = 30 * time.Second

const (
	heartbeatTimeout = 10 * time.Second
	rejoinTimeout    = 15 * time.Second
)

// DefaultRejoinPolicy paces attempts to get back onto the device channel
// while polling stands in for it.
var DefaultRejoinPolicy = retry.Policy{
	Attempts: math.MaxInt32,
	Initial:  2 * time.Second,
	Max:      time.Minute,
	Jitter:   0.2,
}

var errStale = errors.New("forwarder: activation changed")

// Activation is the dashboard input the engine reacts to.
type Activation struct {
	Active     bool
	DeviceID   string
	DeviceName string
}

// Syncer runs synchronization passes.
type Syncer interface {
	RunPass(ctx context.Context, opts service.PassOptions) service.PassResult
	State() service.State
	Heartbeat(ctx context.Context, deviceID, deviceName string)
}

// Status is a snapshot of the engine.
type Status struct {
	Mode       Mode
	Activation Activation
	Sync       service.State
}

// Options configures an Engine.
type Options struct {
	// Polling is the interval trigger, always required.
	Polling Trigger
	// Channels enables realtime mode when non-nil.
	Channels ChannelProvider
	// QueuedEvent is the broadcast event that announces new work.
	QueuedEvent string
	PassTimeout time.Duration
	// Rejoin paces realtime retries while degraded to polling.
	Rejoin  retry.Policy
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Engine owns the forwarding state machine.
type Engine struct {
	syncer      Syncer
	polling     Trigger
	channels    ChannelProvider
	event       string
	passTimeout time.Duration
	rejoin      retry.Policy
	metrics     *metrics.Metrics
	log         zerolog.Logger

	// ctx is cancelled by Close and bounds background rejoin attempts.
	ctx    context.Context
	cancel context.CancelFunc

	// applyMu serialises transitions; mu guards the fields below it.
	applyMu sync.Mutex

	mu      sync.Mutex
	act     Activation
	mode    Mode
	trigger Trigger
	gen     uint64
	seq     uint64
	closed  bool

	tasks sync.WaitGroup
}

// New creates an inactive engine.
func New(syncer Syncer, opts Options) *Engine {
	if opts.PassTimeout <= 0 {
		opts.PassTimeout = DefaultPassTimeout
	}
	if opts.Rejoin.Attempts <= 0 {
		opts.Rejoin = DefaultRejoinPolicy
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		syncer:      syncer,
		polling:     opts.Polling,
		channels:    opts.Channels,
		event:       opts.QueuedEvent,
		passTimeout: opts.PassTimeout,
		rejoin:      opts.Rejoin,
		metrics:     opts.Metrics,
		log:         opts.Logger.With().Str("component", "engine").Logger(),
		mode:        ModeInactive,
		ctx:         ctx,
		cancel:      cancel,
	}
	e.metrics.SetMode(string(ModeInactive), allModes...)
	return e
}

// Apply evaluates a new activation input. An unchanged input is a no-op.
// Otherwise the current trigger is torn down before Apply picks a new
// strategy and dispatches one immediate pass.
func (e *Engine) Apply(ctx context.Context, act Activation) error {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if act == e.act && act.Active == (e.mode != ModeInactive) {
		e.mu.Unlock()
		return nil
	}
	old := e.trigger
	e.trigger = nil
	gen := e.bumpLocked()
	e.act = act
	if !act.Active {
		e.mode = ModeInactive
	}
	e.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	if !act.Active {
		e.metrics.SetMode(string(ModeInactive), allModes...)
		e.log.Info().Msg("forwarding stopped")
		return nil
	}

	trig, mode, err := e.selectTrigger(ctx, gen, act)
	if err != nil {
		e.mu.Lock()
		e.mode = ModeInactive
		e.act.Active = false
		e.mu.Unlock()
		e.metrics.SetMode(string(ModeInactive), allModes...)
		return err
	}

	e.enter(gen, trig, mode)
	if mode == ModePolling && e.wantsRealtime(act) {
		e.startRejoin(gen)
	}
	return nil
}

// Sync runs one pass right away and waits for it. It is a no-op while
// forwarding is off.
func (e *Engine) Sync(ctx context.Context) (service.PassResult, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return service.PassSkipped, ErrClosed
	}
	if e.mode == ModeInactive {
		e.mu.Unlock()
		return service.PassSkipped, ErrInactive
	}
	gen, opts := e.gen, e.passOptionsLocked()
	e.tasks.Add(1)
	e.mu.Unlock()

	defer e.tasks.Done()
	return e.runPass(ctx, gen, opts), nil
}

// State returns the engine mode, activation and sync state.
func (e *Engine) State() Status {
	e.mu.Lock()
	st := Status{Mode: e.mode, Activation: e.act}
	e.mu.Unlock()

	st.Sync = e.syncer.State()
	return st
}

// Close tears down the trigger and waits for in-flight work until ctx ends.
func (e *Engine) Close(ctx context.Context) error {
	e.cancel()

	e.applyMu.Lock()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.applyMu.Unlock()
		return nil
	}
	e.closed = true
	old := e.trigger
	e.trigger = nil
	e.bumpLocked()
	e.mode = ModeInactive
	e.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	e.applyMu.Unlock()
	e.metrics.SetMode(string(ModeInactive), allModes...)

	done := make(chan struct{})
	go func() {
		e.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// selectTrigger prefers the device channel and degrades to polling.
func (e *Engine) selectTrigger(ctx context.Context, gen uint64, act Activation) (Trigger, Mode, error) {
	if e.wantsRealtime(act) {
		rt, err := e.startRealtime(ctx, gen, act)
		if err == nil {
			return rt, ModeRealtime, nil
		}
		e.log.Warn().Err(err).Msg("realtime unavailable, falling back to polling")
	}

	if e.polling == nil {
		return nil, ModeInactive, errors.New("forwarder: no polling trigger")
	}
	if err := e.polling.Start(ctx, e.fireFunc(gen)); err != nil {
		return nil, ModeInactive, err
	}
	return e.polling, ModePolling, nil
}

func (e *Engine) wantsRealtime(act Activation) bool {
	return e.channels != nil && act.DeviceID != ""
}

func (e *Engine) startRealtime(ctx context.Context, gen uint64, act Activation) (Trigger, error) {
	rt := newRealtimeTrigger(
		e.channels,
		act.DeviceID,
		e.event,
		func() { e.heartbeat(gen) },
		func() { e.degrade(gen) },
		e.log,
	)
	if err := rt.Start(ctx, e.fireFunc(gen)); err != nil {
		return nil, err
	}
	return rt, nil
}

// enter records the new active state and runs the immediate pass.
func (e *Engine) enter(gen uint64, trig Trigger, mode Mode) {
	e.mu.Lock()
	stale := e.gen != gen || e.closed
	if !stale {
		e.trigger = trig
		e.mode = mode
	}
	e.mu.Unlock()

	if stale {
		trig.Stop()
		return
	}

	e.metrics.SetMode(string(mode), allModes...)
	e.log.Info().Str("mode", string(mode)).Msg("forwarding started")
	e.dispatch(gen)
}

// degrade switches a realtime engine whose connection dropped to polling.
func (e *Engine) degrade(gen uint64) {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	e.mu.Lock()
	if e.closed || e.gen != gen || e.mode != ModeRealtime {
		e.mu.Unlock()
		return
	}
	old := e.trigger
	e.trigger = nil
	next := e.bumpLocked()
	e.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	if e.polling == nil {
		e.stop(next, "no polling trigger to fall back to")
		return
	}
	if err := e.polling.Start(context.Background(), e.fireFunc(next)); err != nil {
		e.log.Error().Err(err).Msg("falling back to polling failed")
		e.stop(next, "polling unavailable")
		return
	}
	e.log.Warn().Msg("realtime lost, polling instead")
	e.enter(next, e.polling, ModePolling)
	e.startRejoin(next)
}

// startRejoin keeps trying the device channel in the background while the
// polling state entered at gen lasts.
func (e *Engine) startRejoin(gen uint64) {
	e.mu.Lock()
	if e.closed || e.gen != gen {
		e.mu.Unlock()
		return
	}
	e.tasks.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.tasks.Done()

		err := retry.Do(e.ctx, e.rejoin, func(attempt int) error {
			err := e.tryRejoin(gen)
			if err != nil && !errors.Is(err, errStale) {
				e.log.Debug().Err(err).Int("attempt", attempt).Msg("realtime rejoin failed")
			}
			return err
		})
		if err != nil && !errors.Is(err, errStale) && e.ctx.Err() == nil {
			e.log.Warn().Err(err).Msg("giving up on realtime, staying on polling")
		}
	}()
}

// tryRejoin swaps polling for the device channel. Polling keeps running
// until the join succeeds.
func (e *Engine) tryRejoin(gen uint64) error {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	e.mu.Lock()
	if e.closed || e.gen != gen || e.mode != ModePolling {
		e.mu.Unlock()
		return retry.Permanent(errStale)
	}
	// Every gen change happens under applyMu, so the bump is undone on
	// failure without racing another transition.
	next, act := e.bumpLocked(), e.act
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(e.ctx, rejoinTimeout)
	defer cancel()

	rt, err := e.startRealtime(ctx, next, act)
	if err != nil {
		e.mu.Lock()
		e.gen = gen
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	old := e.trigger
	e.trigger = nil
	e.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	e.log.Info().Msg("realtime channel rejoined")
	e.enter(next, rt, ModeRealtime)
	return nil
}

// stopForLogout stops forwarding silently once the token is gone.
func (e *Engine) stopForLogout(gen uint64) {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	e.mu.Lock()
	if e.closed || e.gen != gen || e.mode == ModeInactive {
		e.mu.Unlock()
		return
	}
	old := e.trigger
	e.trigger = nil
	next := e.bumpLocked()
	e.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	e.stop(next, "no auth token")
}

func (e *Engine) stop(gen uint64, reason string) {
	e.mu.Lock()
	if e.gen == gen {
		e.mode = ModeInactive
		e.act.Active = false
	}
	e.mu.Unlock()

	e.metrics.SetMode(string(ModeInactive), allModes...)
	e.log.Info().Str("reason", reason).Msg("forwarding stopped")
}

// bumpLocked moves to a fresh generation. Numbers are never reused, so a
// callback from an abandoned attempt cannot match a later state.
func (e *Engine) bumpLocked() uint64 {
	e.seq++
	e.gen = e.seq
	return e.gen
}

func (e *Engine) fireFunc(gen uint64) func() {
	return func() { e.dispatch(gen) }
}

// dispatch starts a pass in the background unless the trigger is stale.
func (e *Engine) dispatch(gen uint64) {
	e.mu.Lock()
	if e.closed || e.gen != gen || e.mode == ModeInactive {
		e.mu.Unlock()
		return
	}
	opts := e.passOptionsLocked()
	e.tasks.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.tasks.Done()
		e.runPass(context.Background(), gen, opts)
	}()
}

// runPass gives every pass its own bounded context.
func (e *Engine) runPass(ctx context.Context, gen uint64, opts service.PassOptions) service.PassResult {
	ctx, cancel := context.WithTimeout(ctx, e.passTimeout)
	defer cancel()

	res := e.syncer.RunPass(ctx, opts)
	if res == service.PassNoToken {
		e.stopForLogout(gen)
	}
	return res
}

func (e *Engine) heartbeat(gen uint64) {
	e.mu.Lock()
	if e.closed || e.gen != gen {
		e.mu.Unlock()
		return
	}
	act := e.act
	e.tasks.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.tasks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), heartbeatTimeout)
		defer cancel()
		e.syncer.Heartbeat(ctx, act.DeviceID, act.DeviceName)
	}()
}

// passOptionsLocked heartbeats on every polling pass; in realtime mode
// presence replaces it.
func (e *Engine) passOptionsLocked() service.PassOptions {
	return service.PassOptions{
		Heartbeat:  e.mode == ModePolling,
		DeviceID:   e.act.DeviceID,
		DeviceName: e.act.DeviceName,
	}
}

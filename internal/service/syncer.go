package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/oggyb/sms-forwarder/internal/cache"
	domain "github.com/oggyb/sms-forwarder/internal/domain/message"
	"github.com/oggyb/sms-forwarder/internal/metrics"
	"github.com/oggyb/sms-forwarder/internal/sms"
	"github.com/oggyb/sms-forwarder/internal/tokenstore"
)

// ErrUnavailable is the pass error shown when the device cannot send SMS.
var ErrUnavailable = errors.New("SMS is not available on this device")

// RemoteAPI is the backend surface a pass needs.
type RemoteAPI interface {
	FetchPending(ctx context.Context) ([]domain.PendingMessage, error)
	ReportSent(ctx context.Context, id int64) error
	Heartbeat(ctx context.Context, deviceID, deviceName string) error
}

// PassResult says how a synchronization pass ended.
type PassResult string

const (
	PassSkipped     PassResult = "skipped"
	PassNoToken     PassResult = "no-token"
	PassFetchFailed PassResult = "fetch-failed"
	PassAborted     PassResult = "aborted"
	PassCompleted   PassResult = "completed"
)

// Ran reports whether the pass got past its guards.
func (r PassResult) Ran() bool {
	return r != PassSkipped && r != PassNoToken
}

// PassOptions carries per-pass inputs from the engine.
type PassOptions struct {
	// Heartbeat asks for a best-effort heartbeat before fetching.
	Heartbeat  bool
	DeviceID   string
	DeviceName string
}

// State is a snapshot of the synchronization state.
type State struct {
	Processing bool
	LastSync   time.Time
	Error      string
}

// Options configures the optional collaborators of a Syncer.
type Options struct {
	Journal         domain.DeliveryRepository
	Cache           cache.Cache
	Metrics         *metrics.Metrics
	PoisonThreshold int
	Logger          zerolog.Logger
}

// DefaultPoisonThreshold is the failure count at which a message is reported.
const DefaultPoisonThreshold = 5

const cacheTTL = 24 * time.Hour

// Syncer runs synchronization passes: fetch pending work, send each message
// in server order, acknowledge what was sent. At most one pass runs at a time.
type Syncer struct {
	api       RemoteAPI
	messenger sms.Messenger
	tokens    tokenstore.Store

	journal domain.DeliveryRepository
	cache   cache.Cache
	metrics *metrics.Metrics
	poison  int
	log     zerolog.Logger
	now     func() time.Time

	inFlight atomic.Bool

	mu       sync.RWMutex
	lastSync time.Time
	lastErr  string
}

// NewSyncer wires a Syncer. Journal, cache and metrics may be nil.
func NewSyncer(api RemoteAPI, messenger sms.Messenger, tokens tokenstore.Store, opts Options) *Syncer {
	if opts.PoisonThreshold <= 0 {
		opts.PoisonThreshold = DefaultPoisonThreshold
	}

	return &Syncer{
		api:       api,
		messenger: messenger,
		tokens:    tokens,
		journal:   opts.Journal,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		poison:    opts.PoisonThreshold,
		log:       opts.Logger.With().Str("component", "syncer").Logger(),
		now:       time.Now,
	}
}

// State returns the current synchronization state.
func (s *Syncer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Processing: s.inFlight.Load(),
		LastSync:   s.lastSync,
		Error:      s.lastErr,
	}
}

// Processing reports whether a pass is in flight.
func (s *Syncer) Processing() bool {
	return s.inFlight.Load()
}

// HasToken reports whether an auth token is stored.
func (s *Syncer) HasToken(ctx context.Context) bool {
	_, err := s.tokens.Token(ctx)
	return err == nil
}

// RunPass performs one synchronization pass. It returns PassSkipped when
// another pass is in flight and PassNoToken when logged out; in both cases
// the state is left untouched.
func (s *Syncer) RunPass(ctx context.Context, opts PassOptions) (result PassResult) {
	if !s.HasToken(ctx) {
		s.metrics.ObservePass(string(PassNoToken), 0)
		return PassNoToken
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.ObservePass(string(PassSkipped), 0)
		return PassSkipped
	}
	defer s.inFlight.Store(false)

	started := s.now()
	s.setError("")

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("synchronization pass panicked")
			s.setError(fmt.Sprintf("internal error: %v", r))
			result = PassAborted
		}
		s.metrics.ObservePass(string(result), s.now().Sub(started))
	}()

	if opts.Heartbeat && opts.DeviceID != "" {
		s.heartbeat(ctx, opts.DeviceID, opts.DeviceName)
	}

	msgs, err := s.api.FetchPending(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("fetching pending messages failed")
		s.setError(fetchErrorMessage(err))
		return PassFetchFailed
	}

	if len(msgs) == 0 {
		s.log.Debug().Msg("no pending messages")
	} else {
		s.log.Info().Int("count", len(msgs)).Msg("processing pending messages")
	}

	result = s.deliver(ctx, msgs, opts.DeviceID)

	s.mu.Lock()
	s.lastSync = s.now()
	s.mu.Unlock()

	return result
}

// deliver sends messages sequentially in server order.
func (s *Syncer) deliver(ctx context.Context, msgs []domain.PendingMessage, deviceID string) PassResult {
	sent, acked := 0, 0

	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			s.log.Warn().Err(err).Int("remaining", len(msgs)-i).Msg("pass interrupted")
			s.setError(fmt.Sprintf("pass interrupted: %v", err))
			return PassAborted
		}

		if !s.messenger.Available(ctx) {
			s.log.Warn().Int64("id", msg.ID).Int("remaining", len(msgs)-i).Msg("SMS capability unavailable, stopping pass")
			s.metrics.IncMessage(domain.OutcomeUnavailable.String())
			s.setError(ErrUnavailable.Error())
			return PassAborted
		}

		outcome, ackOK := s.process(ctx, msg, deviceID)
		if outcome.AbortsPass() {
			s.setError(ErrUnavailable.Error())
			return PassAborted
		}
		if outcome == domain.OutcomeSent {
			sent++
			if ackOK {
				acked++
			}
		}
	}

	if len(msgs) > 0 {
		s.log.Info().
			Int("fetched", len(msgs)).
			Int("sent", sent).
			Int("acknowledged", acked).
			Msg("pass completed")
	}
	return PassCompleted
}

// process sends one message and acknowledges it when the capability
// reported it as sent. It returns the outcome and whether the ack landed.
func (s *Syncer) process(ctx context.Context, msg domain.PendingMessage, deviceID string) (domain.Outcome, bool) {
	logger := s.log.With().Int64("id", msg.ID).Logger()

	var (
		outcome domain.Outcome
		sendErr error
	)
	if err := msg.Validate(); err != nil {
		outcome, sendErr = domain.OutcomeFailedTransport, err
	} else {
		outcome, sendErr = s.messenger.Send(ctx, msg.PhoneNumber, msg.Body)
	}
	s.metrics.IncMessage(outcome.String())

	delivery := domain.NewDelivery(msg, outcome, deviceID)
	defer s.record(ctx, delivery)

	if !outcome.Acknowledgeable() {
		reason := outcome.String()
		if sendErr != nil {
			reason = sendErr.Error()
		}
		delivery.MarkFailed(reason)
		logger.Warn().Err(sendErr).Str("outcome", outcome.String()).Msg("message not sent")
		if !outcome.AbortsPass() {
			s.countFailure(ctx, msg.ID, logger)
		}
		return outcome, false
	}

	s.rememberSent(ctx, msg.ID)

	if err := s.api.ReportSent(ctx, msg.ID); err != nil {
		// The backend keeps the message pending; it will be sent again.
		logger.Error().Err(err).Msg("message sent but acknowledgment failed")
		s.metrics.IncAckFailed()
		delivery.MarkFailed("acknowledgment failed: " + err.Error())
		return outcome, false
	}

	delivery.MarkAcknowledged()
	logger.Info().Msg("message sent and acknowledged")
	return outcome, true
}

func (s *Syncer) heartbeat(ctx context.Context, deviceID, deviceName string) {
	if err := s.api.Heartbeat(ctx, deviceID, deviceName); err != nil {
		s.log.Warn().Err(err).Str("device_id", deviceID).Msg("heartbeat failed")
		s.metrics.IncHeartbeat(false)
		return
	}
	s.metrics.IncHeartbeat(true)
}

// Heartbeat sends a best-effort heartbeat outside of a pass.
func (s *Syncer) Heartbeat(ctx context.Context, deviceID, deviceName string) {
	if deviceID == "" {
		return
	}
	s.heartbeat(ctx, deviceID, deviceName)
}

func (s *Syncer) record(ctx context.Context, d *domain.Delivery) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Save(ctx, d); err != nil {
		s.log.Warn().Err(err).Int64("id", d.RemoteID).Msg("journal write failed")
	}
}

func (s *Syncer) rememberSent(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	key := strconv.FormatInt(id, 10)
	if err := s.cache.Set(ctx, cache.SentMessages.Key(key), s.now().Format(time.RFC3339), cacheTTL); err != nil {
		s.log.Warn().Err(err).Int64("id", id).Msg("caching sent timestamp failed")
	}
	if err := s.cache.Del(ctx, cache.FailedAttempts.Key(key)); err != nil {
		s.log.Warn().Err(err).Int64("id", id).Msg("clearing failure counter failed")
	}
}

// countFailure tracks repeated failures of one message across passes.
// Reaching the threshold only raises a warning; the message stays pending.
func (s *Syncer) countFailure(ctx context.Context, id int64, logger zerolog.Logger) {
	if s.cache == nil {
		return
	}
	n, err := s.cache.Incr(ctx, cache.FailedAttempts.Key(strconv.FormatInt(id, 10)), cacheTTL)
	if err != nil {
		logger.Warn().Err(err).Msg("counting failed attempt failed")
		return
	}
	if n >= int64(s.poison) {
		logger.Warn().Int64("failures", n).Msg("message keeps failing, check recipient and content")
	}
}

func (s *Syncer) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

func fetchErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return "Failed to fetch pending messages: " + err.Error()
}

package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oggyb/sms-forwarder/internal/realtime"
	"github.com/oggyb/sms-forwarder/internal/scheduler"
)

// Trigger decides when passes run while the engine is active.
type Trigger interface {
	// Start begins calling fire. fire never blocks.
	Start(ctx context.Context, fire func()) error
	// Stop synchronously prevents any further fire call.
	Stop()
}

// ChannelClient is the part of the realtime client the engine uses.
type ChannelClient interface {
	Join(ctx context.Context, name string, h realtime.Handlers) error
	Leave(name string) error
	Done() <-chan struct{}
	Err() error
}

// ChannelProvider hands out the shared realtime client.
type ChannelProvider interface {
	Client(ctx context.Context) (ChannelClient, error)
}

type providerAdapter struct {
	p *realtime.Provider
}

// RealtimeChannels adapts the shared realtime provider for the engine.
func RealtimeChannels(p *realtime.Provider) ChannelProvider {
	return providerAdapter{p: p}
}

func (a providerAdapter) Client(ctx context.Context) (ChannelClient, error) {
	c, err := a.p.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeviceChannel is the channel name joined for a device.
func DeviceChannel(deviceID string) string {
	return "device." + deviceID
}

// pollingTrigger fires on every scheduler tick.
type pollingTrigger struct {
	svc scheduler.Service
}

// NewPollingTrigger wraps an interval scheduler.
func NewPollingTrigger(svc scheduler.Service) Trigger {
	return &pollingTrigger{svc: svc}
}

func (t *pollingTrigger) Start(_ context.Context, fire func()) error {
	return t.svc.Start(fire)
}

func (t *pollingTrigger) Stop() {
	_ = t.svc.Stop()
}

// realtimeTrigger fires once per queued-work event on the device channel.
type realtimeTrigger struct {
	channels ChannelProvider
	channel  string
	event    string
	onHere   func()
	onLost   func()
	log      zerolog.Logger

	mu     sync.Mutex
	client ChannelClient
	stop   chan struct{}
}

func newRealtimeTrigger(channels ChannelProvider, deviceID, event string, onHere, onLost func(), log zerolog.Logger) *realtimeTrigger {
	channel := DeviceChannel(deviceID)
	return &realtimeTrigger{
		channels: channels,
		channel:  channel,
		event:    event,
		onHere:   onHere,
		onLost:   onLost,
		log:      log.With().Str("channel", channel).Logger(),
	}
}

func (t *realtimeTrigger) Start(ctx context.Context, fire func()) error {
	client, err := t.channels.Client(ctx)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("realtime: no client")
	}

	err = client.Join(ctx, t.channel, realtime.Handlers{
		Here: func(members []realtime.Member) {
			t.log.Info().Int("members", len(members)).Msg("device channel joined")
			if t.onHere != nil {
				t.onHere()
			}
		},
		Joining: func(m realtime.Member) {
			t.log.Info().Str("member", m.ID).Msg("member joined device channel")
		},
		Leaving: func(m realtime.Member) {
			t.log.Info().Str("member", m.ID).Msg("member left device channel")
		},
		Listen: t.event,
		Event: func(payload json.RawMessage) {
			t.log.Debug().Int("payload_bytes", len(payload)).Msg("work queued")
			fire()
		},
	})
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	t.mu.Lock()
	t.client = client
	t.stop = stop
	t.mu.Unlock()

	go func() {
		select {
		case <-client.Done():
			t.log.Warn().Err(client.Err()).Msg("realtime connection lost")
			if t.onLost != nil {
				t.onLost()
			}
		case <-stop:
		}
	}()

	return nil
}

func (t *realtimeTrigger) Stop() {
	t.mu.Lock()
	client, stop := t.client, t.stop
	t.client, t.stop = nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if client != nil {
		if err := client.Leave(t.channel); err != nil {
			t.log.Warn().Err(err).Msg("leaving device channel failed")
		}
	}
}

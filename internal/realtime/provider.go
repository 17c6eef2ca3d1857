package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/oggyb/sms-forwarder/internal/retry"
	"github.com/oggyb/sms-forwarder/internal/tokenstore"
)

// DialFunc opens a new connection.
type DialFunc func(ctx context.Context) (*Client, error)

// Provider hands out the process-wide shared Client. The client is built
// lazily on first use and at most one construction runs at a time.
type Provider struct {
	tokens tokenstore.Store
	dial   DialFunc
	log    zerolog.Logger

	group singleflight.Group

	mu     sync.Mutex
	client *Client
}

// NewProvider creates a provider that builds clients with dial.
func NewProvider(tokens tokenstore.Store, dial DialFunc, log zerolog.Logger) *Provider {
	return &Provider{
		tokens: tokens,
		dial:   dial,
		log:    log.With().Str("component", "realtime-provider").Logger(),
	}
}

// NewDialFunc dials cfg with bounded, jittered retries.
func NewDialFunc(cfg Config, auth Authorizer, policy retry.Policy, log zerolog.Logger) DialFunc {
	return func(ctx context.Context) (*Client, error) {
		var c *Client
		err := retry.Do(ctx, policy, func(attempt int) error {
			var err error
			c, err = Dial(ctx, cfg, auth, log)
			if err != nil {
				log.Warn().Err(err).Int("attempt", attempt).Msg("realtime dial failed")
			}
			return err
		})
		return c, err
	}
}

// Client returns the shared client, building it when there is none or the
// previous one lost its connection. Without a token it returns ErrNoToken.
func (p *Provider) Client(ctx context.Context) (*Client, error) {
	if c := p.current(); c != nil {
		return c, nil
	}

	if _, err := p.tokens.Token(ctx); err != nil {
		if errors.Is(err, tokenstore.ErrNoToken) {
			p.log.Warn().Msg("realtime client not built: no auth token")
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("realtime: read token: %w", err)
	}

	v, err, _ := p.group.Do("client", func() (any, error) {
		if c := p.current(); c != nil {
			return c, nil
		}

		c, err := p.dial(ctx)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.client = c
		p.mu.Unlock()
		return c, nil
	})
	if err != nil {
		p.log.Error().Err(err).Msg("realtime client construction failed")
		return nil, fmt.Errorf("realtime: connect: %w", err)
	}
	return v.(*Client), nil
}

// Disconnect closes and forgets the shared client.
func (p *Provider) Disconnect() {
	p.mu.Lock()
	c := p.client
	p.client = nil
	p.mu.Unlock()

	if c != nil {
		_ = c.Close()
	}
}

func (p *Provider) current() *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.Closed() {
		p.client = nil
	}
	return p.client
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oggyb/sms-forwarder/internal/cache"
	domain "github.com/oggyb/sms-forwarder/internal/domain/message"
)

// fakeAPI records calls and can block FetchPending until released.
type fakeAPI struct {
	mu sync.Mutex

	pending    []domain.PendingMessage
	fetchErr   error
	ackErr     map[int64]error
	heartErr   error
	fetches    int
	acked      []int64
	heartbeats []string

	fetchStarted chan struct{}
	fetchBlock   chan struct{}
}

func newFakeAPI(msgs ...domain.PendingMessage) *fakeAPI {
	return &fakeAPI{pending: msgs, ackErr: map[int64]error{}}
}

func (f *fakeAPI) FetchPending(ctx context.Context) ([]domain.PendingMessage, error) {
	f.mu.Lock()
	f.fetches++
	started, block := f.fetchStarted, f.fetchBlock
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]domain.PendingMessage(nil), f.pending...), nil
}

func (f *fakeAPI) ReportSent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ackErr[id]; err != nil {
		return err
	}
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeAPI) Heartbeat(_ context.Context, deviceID, deviceName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats = append(f.heartbeats, deviceID+"|"+deviceName)
	return f.heartErr
}

func (f *fakeAPI) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeAPI) Acked() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.acked...)
}

func (f *fakeAPI) Heartbeats() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.heartbeats...)
}

// fakeMessenger returns scripted outcomes per recipient.
type fakeMessenger struct {
	mu sync.Mutex

	available   bool
	unavailAt   int // availability flips to false before this send index; -1 disables
	outcomes    map[string]domain.Outcome
	sent        []string
	checks      int
	panicOnSend bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{available: true, unavailAt: -1, outcomes: map[string]domain.Outcome{}}
}

func (f *fakeMessenger) Available(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.unavailAt >= 0 && len(f.sent) >= f.unavailAt {
		return false
	}
	return f.available
}

func (f *fakeMessenger) Send(_ context.Context, to, _ string) (domain.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnSend {
		panic("native bridge crashed")
	}
	f.sent = append(f.sent, to)
	if o, ok := f.outcomes[to]; ok && o != domain.OutcomeSent {
		return o, errors.New("scripted " + o.String())
	}
	return domain.OutcomeSent, nil
}

func (f *fakeMessenger) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// fakeJournal keeps deliveries in memory.
type fakeJournal struct {
	mu    sync.Mutex
	items []*domain.Delivery
}

func (j *fakeJournal) Save(_ context.Context, d *domain.Delivery) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	cp := *d
	j.items = append(j.items, &cp)
	return nil
}

func (j *fakeJournal) List(_ context.Context, _, _ int) ([]*domain.Delivery, int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.items, int64(len(j.items)), nil
}

// fakeCache is an in-memory cache.Cache.
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
	cnt  map[string]int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}, cnt: map[string]int64{}}
}

func (c *fakeCache) Ping(context.Context) error { return nil }

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	delete(c.cnt, key)
	return nil
}

func (c *fakeCache) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cnt[key]++
	return c.cnt[key], nil
}

func (c *fakeCache) Close() error { return nil }

func (c *fakeCache) Count(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cnt[key]
}

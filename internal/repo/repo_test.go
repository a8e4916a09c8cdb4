package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"rfpdesk/api/internal/logger"
	"rfpdesk/api/internal/rfpscore"
	"rfpdesk/api/internal/store"
)

var referenceDate = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stepClock advances one millisecond per reading so creation order is
// strict.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	repos *Repositories
	table store.Table
	clock *stepClock
	redis *miniredis.Miniredis
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()
	s := miniredis.RunT(t)
	client, err := store.OpenRedis(context.Background(), "redis://"+s.Addr())
	require.NoError(t, err)
	table := store.NewRedisTable(client, "test")
	t.Cleanup(func() { _ = table.Close() })

	clock := &stepClock{t: referenceDate}
	cfg := Config{
		Table:  table,
		Logger: logger.Nop(),
		Now:    clock.Now,
		Scorer: rfpscore.New(rfpscore.Profile{Certifications: []string{"PE"}}, func() time.Time { return referenceDate }),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	repos, err := New(cfg)
	require.NoError(t, err)
	return &fixture{repos: repos, table: cfg.Table, clock: clock, redis: s}
}

// faultyTable fails the operations selected by its hooks and delegates the
// rest.
type faultyTable struct {
	store.Table
	failQuery func(q store.Query) bool
	failPut   func(item store.Item) bool
	queries   []store.Query
	mu        sync.Mutex
}

var errInjected = errors.New("injected failure")

func (f *faultyTable) Query(ctx context.Context, q store.Query) (store.Page, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.failQuery != nil && f.failQuery(q) {
		return store.Page{}, errInjected
	}
	return f.Table.Query(ctx, q)
}

func (f *faultyTable) Put(ctx context.Context, item store.Item, cond *store.Condition) error {
	if f.failPut != nil && f.failPut(item) {
		return errInjected
	}
	return f.Table.Put(ctx, item, cond)
}

func withFaults(f *faultyTable) func(*Config) {
	return func(cfg *Config) {
		f.Table = cfg.Table
		cfg.Table = f
	}
}

type fakeObjects struct {
	mu      sync.Mutex
	removed []string
	failRm  bool
}

func (f *fakeObjects) PresignUpload(_ context.Context, key string) (string, error) {
	return "https://objects.test/put/" + key, nil
}

func (f *fakeObjects) PresignDownload(_ context.Context, key, name string) (string, error) {
	return "https://objects.test/get/" + key + "?name=" + name, nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRm {
		return errInjected
	}
	f.removed = append(f.removed, key)
	return nil
}

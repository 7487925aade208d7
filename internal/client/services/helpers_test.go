package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 7, 14, 6, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type submitCall struct {
	key string
	sub models.Submission
}

// fakeClient answers SubmitTask from a scripted list of errors; once the
// script runs out every call succeeds.
type fakeClient struct {
	client.Client

	mu     sync.Mutex
	errs   []error
	calls  []submitCall
	block  chan struct{}
	called chan struct{}
}

func (f *fakeClient) SubmitTask(ctx context.Context, key string, sub models.Submission) error {
	if f.called != nil {
		f.called <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, submitCall{key: key, sub: sub})
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeClient) Calls() []submitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submitCall(nil), f.calls...)
}

type staticConn bool

func (c staticConn) IsOnline() bool { return bool(c) }

func openRepos(t *testing.T, clock *fakeClock) *store.Repositories {
	t.Helper()
	r, err := store.OpenMemory(context.Background(), store.WithClock(clock.Now))
	require.NoError(t, err)
	return r
}

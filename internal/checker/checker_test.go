package checker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ipwatch/internal/cache"
	"ipwatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeResolver struct {
	ip    string
	err   error
	calls int
}

func (r *fakeResolver) Lookup(context.Context) (string, error) {
	r.calls++
	return r.ip, r.err
}

type fakeNotifier struct {
	err     error
	changes []*types.IPChange
}

func (n *fakeNotifier) NotifyIPChange(_ context.Context, change *types.IPChange) error {
	n.changes = append(n.changes, change)
	return n.err
}

// failingSaveStore wraps a store and fails every Save
type failingSaveStore struct {
	cache.Store
	saves int
}

func (s *failingSaveStore) Save(context.Context, string) error {
	s.saves++
	return errors.New("disk full")
}

func newFileStore(t *testing.T) (*cache.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "public_ip_cache.txt")
	return cache.NewFileStore(path, zaptest.NewLogger(t)), path
}

func newChecker(t *testing.T, opts Options, store cache.Store, r Resolver, n *fakeNotifier) *Checker {
	t.Helper()
	c := New(opts, store, r, n, zaptest.NewLogger(t))
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c
}

func TestFirstRunNotifiesAndCreatesCache(t *testing.T) {
	store, path := newFileStore(t)
	n := &fakeNotifier{}

	res := newChecker(t, Options{Name: "Home"}, store, &fakeResolver{ip: "203.0.113.10"}, n).Check(context.Background())

	assert.Equal(t, types.OutcomeChanged, res.Outcome)
	require.Len(t, n.changes, 1)
	assert.Equal(t, "Home", n.changes[0].Name)
	assert.Empty(t, n.changes[0].OldIP)
	assert.Equal(t, "203.0.113.10", n.changes[0].NewIP)
	assert.True(t, n.changes[0].IsFirstSeen())
	assert.True(t, res.Notified)
	assert.True(t, res.Saved)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.10\n", string(data))
}

func TestUnchangedSkipsNotifyAndLeavesCache(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte("203.0.113.10\n"), 0644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	before, err := os.Stat(path)
	require.NoError(t, err)

	n := &fakeNotifier{}
	res := newChecker(t, Options{Name: "Home"}, store, &fakeResolver{ip: "203.0.113.10"}, n).Check(context.Background())

	assert.Equal(t, types.OutcomeUnchanged, res.Outcome)
	assert.Empty(t, n.changes)
	assert.False(t, res.Saved)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestLookupFailureDoesNothing(t *testing.T) {
	store, path := newFileStore(t)
	n := &fakeNotifier{}

	res := newChecker(t, Options{Name: "Home"}, store,
		&fakeResolver{err: errors.New("dial tcp: i/o timeout")}, n).Check(context.Background())

	assert.Equal(t, types.OutcomeLookupFailed, res.Outcome)
	assert.Error(t, res.LookupErr)
	assert.Empty(t, n.changes)
	assert.False(t, res.Saved)
	assert.NoFileExists(t, path)
}

func TestSaveFailureAfterNotification(t *testing.T) {
	fileStore, _ := newFileStore(t)
	store := &failingSaveStore{Store: fileStore}
	n := &fakeNotifier{}

	res := newChecker(t, Options{Name: "Home"}, store, &fakeResolver{ip: "203.0.113.10"}, n).Check(context.Background())

	assert.Equal(t, types.OutcomeChanged, res.Outcome)
	assert.True(t, res.Notified)
	assert.Len(t, n.changes, 1, "notification is not reverted or repeated")
	assert.Error(t, res.SaveErr)
	assert.False(t, res.Saved)
	assert.Equal(t, 1, store.saves)
}

func TestNotifyFailureStillSavesByDefault(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte("198.51.100.1\n"), 0644))
	n := &fakeNotifier{err: &types.ProviderError{Provider: "telegram", Description: "chat not found"}}

	res := newChecker(t, Options{Name: "Home"}, store, &fakeResolver{ip: "203.0.113.10"}, n).Check(context.Background())

	assert.Error(t, res.NotifyErr)
	assert.False(t, res.Notified)
	assert.True(t, res.Saved)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.10\n", string(data))
}

func TestNotifyFailureSkipsSaveWhenConfigured(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte("198.51.100.1\n"), 0644))
	n := &fakeNotifier{err: errors.New("connection reset")}

	opts := Options{Name: "Home", SkipSaveOnNotifyFailure: true}
	res := newChecker(t, opts, store, &fakeResolver{ip: "203.0.113.10"}, n).Check(context.Background())

	assert.Equal(t, types.OutcomeChanged, res.Outcome)
	assert.False(t, res.Saved)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1\n", string(data))
}

func TestIdempotentWithStableIP(t *testing.T) {
	store, _ := newFileStore(t)
	n := &fakeNotifier{}
	r := &fakeResolver{ip: "2001:db8::7"}
	c := newChecker(t, Options{Name: "Home"}, store, r, n)

	first := c.Check(context.Background())
	second := c.Check(context.Background())

	assert.Equal(t, types.OutcomeChanged, first.Outcome)
	assert.Equal(t, types.OutcomeUnchanged, second.Outcome)
	require.Len(t, n.changes, 1)
	assert.Equal(t, types.IPv6, n.changes[0].Version)
	assert.Equal(t, 2, r.calls)
}

func TestUnreadableCacheTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	// The cache path is a directory: reads fail, so do writes
	store := cache.NewFileStore(dir, zaptest.NewLogger(t))
	n := &fakeNotifier{}

	res := newChecker(t, Options{Name: "Home"}, store, &fakeResolver{ip: "203.0.113.10"}, n).Check(context.Background())

	assert.Error(t, res.LoadErr)
	assert.Empty(t, res.PreviousIP)
	assert.Equal(t, types.OutcomeChanged, res.Outcome)
	require.Len(t, n.changes, 1)
	assert.Error(t, res.SaveErr)
}

func TestCheckLogsOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte("203.0.113.10\n"), 0644))

	c := New(Options{Name: "Home"}, store, &fakeResolver{ip: "203.0.113.10"}, &fakeNotifier{}, zap.New(core))
	c.Check(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("IP no change").Len())

	core, logs = observer.New(zapcore.InfoLevel)
	c = New(Options{Name: "Home"}, store, &fakeResolver{err: errors.New("boom")}, &fakeNotifier{}, zap.New(core))
	c.Check(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("Could not determine current public IP, skip this check").Len())
}

package proxy_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PrimaryFunction/Arkos/internal/proxy"
	"github.com/PrimaryFunction/Arkos/internal/store"
	"github.com/PrimaryFunction/Arkos/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// award is one recorded Awarder call.
type award struct {
	UserID, ChannelID, Text string
}

// recordingAwarder records awards.
type recordingAwarder struct {
	mu     sync.Mutex
	awards []award
}

func (a *recordingAwarder) Award(_ context.Context, userID, channelID, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.awards = append(a.awards, award{userID, channelID, text})
}

func (a *recordingAwarder) all() []award {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]award(nil), a.awards...)
}

// relayFixture wires a Relayer over a real store and a recording platform.
type relayFixture struct {
	store    *store.Store
	access   *proxy.AccessControl
	platform *testutil.RecordingPlatform
	awarder  *recordingAwarder
	relayer  *proxy.Relayer
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	st := openTestStore(t)
	access := proxy.NewAccessControl(st, discardLogger())
	platform := testutil.NewRecordingPlatform()
	awarder := &recordingAwarder{}
	relayer := proxy.NewRelayer(access, platform, awarder,
		proxy.WithLogger(discardLogger()),
		proxy.WithIDGenerator(testutil.NewFixedIDGenerator("")),
	)
	return &relayFixture{store: st, access: access, platform: platform, awarder: awarder, relayer: relayer}
}

func (f *relayFixture) createProxy(t *testing.T, key, name, avatar, creator string) {
	t.Helper()
	_, err := f.access.CreateProxy(context.Background(), key, name, avatar, creator)
	require.NoError(t, err)
}

func ops(calls []testutil.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Op)
	}
	return out
}

package leveling

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrimaryFunction/Arkos/internal/model"
	"github.com/PrimaryFunction/Arkos/internal/testutil"
)

type engineFixture struct {
	engine   *Engine
	notifier *Notifier
	platform *testutil.RecordingPlatform
}

func newEngineFixture(t *testing.T, st Store) *engineFixture {
	t.Helper()
	if st == nil {
		st = openTestStore(t)
	}
	p := testutil.NewRecordingPlatform()
	n := NewNotifier(p, 16, time.Second, discardLogger())
	e := New(st, DefaultCurve(), n, WithLogger(discardLogger()))
	return &engineFixture{engine: e, notifier: n, platform: p}
}

func TestEngine_QueryDefault(t *testing.T) {
	f := newEngineFixture(t, nil)

	rec, err := f.engine.Query(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, model.XPRecord{UserID: "nobody", XP: 0, Level: 1}, rec)
}

func TestEngine_AwardPersists(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	f.engine.Award(ctx, "2", "chan-1", "hello")

	rec, err := f.engine.Query(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, DefaultCurve().Delta("hello"), rec.XP)
	assert.Equal(t, int64(1), rec.Level)
	assert.Equal(t, 0, f.notifier.Pending(), "no level-up yet")
}

func TestEngine_AwardIsCumulative(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()
	text := strings.Repeat("a", 50)

	for i := 0; i < 3; i++ {
		f.engine.Award(ctx, "u", "chan-1", text)
	}
	rec, err := f.engine.Query(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(15), rec.XP)
}

func TestEngine_LevelUpQueuesNotification(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	// 99 xp, one short of level 2.
	out, err := f.engine.Credit(ctx, "u", "chan-1", strings.Repeat("a", 990))
	require.NoError(t, err)
	require.False(t, out.LeveledUp)
	require.Equal(t, int64(99), out.Record.XP)

	out, err = f.engine.Credit(ctx, "u", "chan-7", "x")
	require.NoError(t, err)
	assert.True(t, out.LeveledUp)
	assert.Equal(t, int64(1), out.Delta)
	assert.Equal(t, model.XPRecord{UserID: "u", XP: 100, Level: 2}, out.Record)

	require.Equal(t, 1, f.notifier.Drain(ctx))
	calls := f.platform.CallsOf(testutil.OpNotify)
	require.Len(t, calls, 1)
	assert.Equal(t, "chan-7", calls[0].ChannelID)
	assert.Equal(t, "<@u> leveled up to 2!", calls[0].Text)
}

func TestEngine_SingleStepLevelUp(t *testing.T) {
	f := newEngineFixture(t, nil)

	out, err := f.engine.Credit(context.Background(), "u", "chan-1", strings.Repeat("a", 5000))
	require.NoError(t, err)
	assert.True(t, out.LeveledUp)
	assert.Equal(t, int64(500), out.Record.XP)
	assert.Equal(t, int64(2), out.Record.Level, "one level per award")
}

func TestEngine_NotificationFailureKeepsState(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.platform.FailOn(testutil.OpNotify, errors.New("channel gone"))
	ctx := context.Background()

	f.engine.Award(ctx, "u", "chan-1", strings.Repeat("a", 1000))
	f.notifier.Drain(ctx)

	rec, err := f.engine.Query(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Level)
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) GetXP(_ context.Context, userID string) (model.XPRecord, error) {
	return model.DefaultXPRecord(userID), nil
}

func (failingStore) UpdateXP(context.Context, string, func(model.XPRecord) model.XPRecord) (model.XPRecord, error) {
	return model.XPRecord{}, errors.New("database is locked")
}

func TestEngine_StoreFailureIsAbsorbed(t *testing.T) {
	f := newEngineFixture(t, failingStore{})

	assert.NotPanics(t, func() {
		f.engine.Award(context.Background(), "u", "chan-1", strings.Repeat("a", 5000))
	})
	assert.Equal(t, 0, f.notifier.Pending(), "unpersisted level-up is never announced")

	_, err := f.engine.Credit(context.Background(), "u", "chan-1", "x")
	assert.Error(t, err)
}

func TestEngine_AwardSurvivesCancelledCaller(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.engine.Award(ctx, "u", "chan-1", "hello")

	rec, err := f.engine.Query(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.XP)
}

func TestEngine_ConcurrentAwardsLoseNothing(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.engine.Award(ctx, "u", "chan-1", "hi")
		}()
	}
	wg.Wait()

	rec, err := f.engine.Query(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(n), rec.XP)
}

func TestEngine_NilNotifier(t *testing.T) {
	e := New(openTestStore(t), DefaultCurve(), nil, WithLogger(discardLogger()))

	out, err := e.Credit(context.Background(), "u", "c", strings.Repeat("a", 1000))
	require.NoError(t, err)
	assert.True(t, out.LeveledUp)
}

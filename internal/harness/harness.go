package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/PrimaryFunction/Arkos/internal/leveling"
	"github.com/PrimaryFunction/Arkos/internal/proxy"
	"github.com/PrimaryFunction/Arkos/internal/store"
	"github.com/PrimaryFunction/Arkos/internal/testutil"
)

// Harness holds the wired components of one scenario run.
type Harness struct {
	store    *store.Store
	platform *testutil.RecordingPlatform
	access   *proxy.AccessControl
	relayer  *proxy.Relayer
	engine   *leveling.Engine
	notifier *leveling.Notifier
	seq      *testutil.Sequence
}

// Run executes a scenario in a fresh in-memory database.
//
// The returned error reports a harness failure (the store could not be
// opened); unmet expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := newHarness(st, scenario)
	ctx := context.Background()

	result := NewResult()
	for i, step := range scenario.Steps {
		event := h.execute(ctx, step)
		result.Trace = append(result.Trace, event)

		want := step.Expect
		if want == "" {
			want = OutcomeOK
		}
		if event.Outcome != want {
			result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s", i+1, step.Op, want, event.Outcome))
		}
	}

	for _, msg := range h.evaluate(ctx, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(st *store.Store, scenario *Scenario) *Harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	platform := testutil.NewRecordingPlatform()
	for _, ch := range scenario.Channels {
		platform.SetParent(ch.ID, ch.Parent)
	}

	curve := leveling.DefaultCurve()
	if scenario.Curve != nil {
		curve = leveling.Curve{CharsPerPoint: scenario.Curve.CharsPerPoint, LevelBase: scenario.Curve.LevelBase}
	}

	notifier := leveling.NewNotifier(platform, leveling.DefaultQueueSize, time.Second, logger)
	engine := leveling.New(st, curve, notifier, leveling.WithLogger(logger))
	access := proxy.NewAccessControl(st, logger)
	relayer := proxy.NewRelayer(access, platform, engine,
		proxy.WithLogger(logger),
		proxy.WithIDGenerator(testutil.NewFixedIDGenerator("relay")),
	)

	return &Harness{
		store:    st,
		platform: platform,
		access:   access,
		relayer:  relayer,
		engine:   engine,
		notifier: notifier,
		seq:      testutil.NewSequence(),
	}
}

// execute runs one step, drains any notifications it caused and returns
// its trace event.
func (h *Harness) execute(ctx context.Context, step Step) TraceEvent {
	before := len(h.platform.Calls())

	result, err := h.dispatch(ctx, step)
	h.notifier.Drain(ctx)

	event := TraceEvent{
		Seq:     h.seq.Next(),
		Op:      step.Op,
		User:    step.User,
		Key:     step.Key,
		Outcome: outcomeOf(err),
		Calls:   h.platform.Calls()[before:],
	}
	if err == nil {
		event.Result = result
	}
	return event
}

func (h *Harness) dispatch(ctx context.Context, step Step) (any, error) {
	switch step.Op {
	case OpCreate:
		return h.access.CreateProxy(ctx, step.Key, step.Name, step.Avatar, step.User)

	case OpGrant:
		return nil, h.access.GrantAccess(ctx, step.Key, step.User, step.Grantee)

	case OpRelay:
		res, err := h.relayer.Relay(ctx, proxy.Request{
			ProxyKey:  step.Key,
			UserID:    step.User,
			ChannelID: step.Channel,
			MessageID: step.MessageID,
			Text:      step.Text,
		})
		if err != nil {
			return nil, err
		}
		return RelayResult{RelayID: res.RelayID, ChannelID: res.ChannelID, HostChannelID: res.HostChannelID}, nil

	case OpDelete:
		n, err := h.access.DeleteProxy(ctx, step.Key)
		if err != nil {
			return nil, err
		}
		return DeleteResult{GrantsRemoved: n}, nil

	case OpList:
		return h.access.ListAccessible(ctx, step.User)

	case OpAccess:
		return h.access.ListGrantees(ctx, step.Key)

	case OpXP:
		return h.engine.Query(ctx, step.User)

	case OpFail:
		var injected error
		if step.Error != "" {
			injected = errors.New(step.Error)
		}
		h.platform.FailOn(step.Call, injected)
		return nil, nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

// outcomeOf maps err to a trace outcome: OK, a proxy error code, or ERROR.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := proxy.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

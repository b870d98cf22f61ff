package sage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Short buffer so defer-path tests stay fast while leaving enough slack for
// slow CI schedulers.
const testBuffer = 30 * time.Millisecond

func newTestDispatcher(cfg Config) *Dispatcher {
	return New(func(o *Options) { o.Config = cfg })
}

func fastHandler(result any, err error) core.CommandHandler {
	return func(ctx context.Context, i *core.Interaction) (any, error) {
		return result, err
	}
}

func slowHandler(delay time.Duration, result any, err error) core.CommandHandler {
	return func(ctx context.Context, i *core.Interaction) (any, error) {
		select {
		case <-time.After(delay):
			return result, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestDispatch_FastHandlerRepliesWithoutDefer(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("ping").Build()

	err := d.Dispatch(context.Background(), rsp, i, fastHandler("pong", nil), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"reply"}, rsp.Ops())
	assert.Equal(t, "pong", rsp.LastReply().Content)
}

func TestDispatch_SlowHandlerIsDeferredThenEdited(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("slow").Build()

	err := d.Dispatch(context.Background(), rsp, i, slowHandler(4*testBuffer, "done", nil), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"defer", "edit"}, rsp.Ops())
	assert.Equal(t, "done", rsp.LastReply().Content)
}

func TestDispatch_DeferEphemeralFlag(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, Ephemeral: true, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("secret").Build()

	err := d.Dispatch(context.Background(), rsp, i, slowHandler(3*testBuffer, "shh", nil), nil)
	require.NoError(t, err)

	calls := rsp.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "defer", calls[0].Op)
	assert.True(t, calls[0].Ephemeral)
}

func TestDispatch_DeferDisabledWaitsForHandler(t *testing.T) {
	d := newTestDispatcher(Config{Defer: false, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("manual").Build()

	err := d.Dispatch(context.Background(), rsp, i, slowHandler(2*testBuffer, "late", nil), nil)
	require.NoError(t, err)

	// No defer even though the handler outlived the usual buffer.
	assert.Equal(t, []string{"reply"}, rsp.Ops())
}

func TestDispatch_HandlerErrorSendsErrorReply(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("boom").Build()

	boom := errors.New("database unreachable")
	err := d.Dispatch(context.Background(), rsp, i, fastHandler(nil, boom), nil)
	require.ErrorIs(t, err, boom)

	require.Equal(t, []string{"reply"}, rsp.Ops())
	reply := rsp.LastReply()
	require.NotNil(t, reply)
	require.Len(t, reply.Embeds, 1)
	assert.Contains(t, reply.Embeds[0].Description, "database unreachable")
	assert.True(t, reply.Ephemeral)
}

func TestDispatch_HandlerErrorAfterDeferEditsErrorReply(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("boom").Build()

	boom := errors.New("late failure")
	err := d.Dispatch(context.Background(), rsp, i, slowHandler(3*testBuffer, nil, boom), nil)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"defer", "edit"}, rsp.Ops())
}

func TestDispatch_ErrorRepliesDisabledStaysSilent(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: false})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("boom").Build()

	err := d.Dispatch(context.Background(), rsp, i, fastHandler(nil, errors.New("hidden")), nil)
	require.Error(t, err)

	assert.Empty(t, rsp.Ops())
}

func TestDispatch_NilResultWhilePendingSendsNothing(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("quiet").Build()

	err := d.Dispatch(context.Background(), rsp, i, fastHandler(nil, nil), nil)
	require.NoError(t, err)

	assert.Empty(t, rsp.Ops())
}

func TestDispatch_NilResultAfterDeferLeavesAcknowledgement(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("quiet").Build()

	err := d.Dispatch(context.Background(), rsp, i, slowHandler(3*testBuffer, nil, nil), nil)
	require.NoError(t, err)

	// The defer stands alone; no edit for a nil result.
	assert.Equal(t, []string{"defer"}, rsp.Ops())
}

func TestDispatch_HardTimeoutWhilePending(t *testing.T) {
	d := newTestDispatcher(Config{Defer: false, ErrorReplies: true, Timeout: testBuffer})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("stuck").Build()

	err := d.Dispatch(context.Background(), rsp, i, slowHandler(time.Second, "never", nil), nil)
	require.ErrorIs(t, err, core.ErrSageTimeout)

	require.Equal(t, []string{"reply"}, rsp.Ops())
	reply := rsp.LastReply()
	require.NotNil(t, reply)
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "Command timed out", reply.Embeds[0].Title)
}

func TestDispatch_HardTimeoutAfterDefer(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true, Timeout: 3 * testBuffer})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("stuck").Build()

	err := d.Dispatch(context.Background(), rsp, i, slowHandler(time.Second, "never", nil), nil)
	require.ErrorIs(t, err, core.ErrSageTimeout)

	assert.Equal(t, []string{"defer", "edit"}, rsp.Ops())
}

func TestDispatch_TimeoutCancelsHandlerContext(t *testing.T) {
	d := newTestDispatcher(Config{Defer: false, ErrorReplies: false, Timeout: testBuffer})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("stuck").Build()

	cancelled := make(chan struct{})
	handler := func(ctx context.Context, i *core.Interaction) (any, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}

	err := d.Dispatch(context.Background(), rsp, i, handler, nil)
	require.ErrorIs(t, err, core.ErrSageTimeout)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("handler context was not cancelled after timeout")
	}
}

func TestDispatch_ContextCancellation(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: time.Second, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("cancelled").Build()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(testBuffer)
		cancel()
	}()

	err := d.Dispatch(ctx, rsp, i, slowHandler(time.Minute, nil, nil), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rsp.Ops())
}

func TestDispatch_PanicIsRecoveredAsError(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	i := testutil.NewInteractionBuilder().Command("panic").Build()

	handler := func(ctx context.Context, i *core.Interaction) (any, error) {
		panic("nope")
	}

	err := d.Dispatch(context.Background(), rsp, i, handler, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
	assert.Equal(t, []string{"reply"}, rsp.Ops())
}

func TestDispatch_FailedInitialReplyFallsBackToFollowUp(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: time.Second, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	rsp.ReplyErr = errors.New("interaction already acknowledged")
	i := testutil.NewInteractionBuilder().Command("double").Build()

	err := d.Dispatch(context.Background(), rsp, i, fastHandler("anyway", nil), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"reply", "followup"}, rsp.Ops())
}

func TestDispatch_FailedDeferStaysPending(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})
	rsp := testutil.NewRecordingResponder()
	rsp.DeferErr = errors.New("already acknowledged")
	i := testutil.NewInteractionBuilder().Command("acked").Build()

	err := d.Dispatch(context.Background(), rsp, i, slowHandler(3*testBuffer, "result", nil), nil)
	require.NoError(t, err)

	// Defer failed, so the result goes out as a fresh initial reply.
	assert.Equal(t, []string{"defer", "reply"}, rsp.Ops())
}

func TestDispatch_ConcurrentInteractions(t *testing.T) {
	d := newTestDispatcher(Config{Defer: true, Buffer: testBuffer, ErrorReplies: true})

	const n = 16
	errCh := make(chan error, n)
	responders := make([]*testutil.RecordingResponder, n)
	for idx := 0; idx < n; idx++ {
		responders[idx] = testutil.NewRecordingResponder()
		go func(rsp *testutil.RecordingResponder) {
			i := testutil.NewInteractionBuilder().Command("burst").Build()
			errCh <- d.Dispatch(context.Background(), rsp, i, slowHandler(2*testBuffer, "ok", nil), nil)
		}(responders[idx])
	}

	for idx := 0; idx < n; idx++ {
		require.NoError(t, <-errCh)
	}
	for _, rsp := range responders {
		assert.Equal(t, []string{"defer", "edit"}, rsp.Ops())
	}
}

func TestResolve(t *testing.T) {
	base := Config{Defer: true, Buffer: 250 * time.Millisecond, ErrorReplies: true}

	t.Run("nil override keeps base", func(t *testing.T) {
		assert.Equal(t, base, Resolve(base, nil))
	})

	t.Run("pointer fields override", func(t *testing.T) {
		off := false
		cfg := Resolve(base, &core.SageConfig{Defer: &off, ErrorReplies: &off})
		assert.False(t, cfg.Defer)
		assert.False(t, cfg.ErrorReplies)
		assert.Equal(t, base.Buffer, cfg.Buffer)
	})

	t.Run("durations override", func(t *testing.T) {
		second := time.Second
		cfg := Resolve(base, &core.SageConfig{Buffer: &second, Timeout: time.Minute})
		assert.Equal(t, time.Second, cfg.Buffer)
		assert.Equal(t, time.Minute, cfg.Timeout)
	})

	t.Run("explicit zero buffer defers immediately", func(t *testing.T) {
		zero := time.Duration(0)
		cfg := Resolve(base, &core.SageConfig{Buffer: &zero})
		assert.Equal(t, time.Duration(0), cfg.Buffer)
	})

	t.Run("nil buffer inherits base", func(t *testing.T) {
		cfg := Resolve(base, &core.SageConfig{})
		assert.Equal(t, base.Buffer, cfg.Buffer)
	})

	t.Run("ephemeral only turns on", func(t *testing.T) {
		cfg := Resolve(base, &core.SageConfig{Ephemeral: true})
		assert.True(t, cfg.Ephemeral)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", statePending.String())
	assert.Equal(t, "deferred", stateDeferred.String())
	assert.Equal(t, "replied", stateReplied.String())
}

package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startedRunner(t *testing.T) *Runner {
	t.Helper()
	runner := NewRunner(NewBus(), 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	runner.Start(ctx)
	return runner
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRunnerExecutesTask(t *testing.T) {
	runner := startedRunner(t)
	var ran atomic.Bool
	ok, err := runner.Submit(KindIngest, IngestKey(1), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	waitFor(t, ran.Load)
	waitFor(t, func() bool {
		s, _ := runner.StatusOf(IngestKey(1))
		return s == StatusCompleted
	})
}

func TestRunnerDedupsInflightKey(t *testing.T) {
	runner := startedRunner(t)
	release := make(chan struct{})
	started := make(chan struct{})
	ok, err := runner.Submit(KindIngest, IngestKey(2), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	<-started

	// Second submit while the first is processing is a no-op.
	ok, err = runner.Submit(KindIngest, IngestKey(2), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.False(t, ok)
	close(release)
}

func TestRunnerSerializesTasks(t *testing.T) {
	runner := startedRunner(t)
	var concurrent, peak atomic.Int32
	for i := 0; i < 5; i++ {
		id := int64(100 + i)
		_, err := runner.Submit(KindIngest, IngestKey(id), func(ctx context.Context) error {
			now := concurrent.Add(1)
			if now > peak.Load() {
				peak.Store(now)
			}
			time.Sleep(10 * time.Millisecond)
			concurrent.Add(-1)
			return nil
		})
		require.NoError(t, err)
	}
	waitFor(t, func() bool {
		s, _ := runner.StatusOf(IngestKey(104))
		return s == StatusCompleted
	})
	require.Equal(t, int32(1), peak.Load())
}

func TestRunnerCancelAndWait(t *testing.T) {
	runner := startedRunner(t)
	observed := make(chan struct{})
	_, err := runner.Submit(KindIngest, IngestKey(3), func(ctx context.Context) error {
		<-ctx.Done()
		close(observed)
		return ctx.Err()
	})
	require.NoError(t, err)
	waitFor(t, func() bool {
		s, _ := runner.StatusOf(IngestKey(3))
		return s == StatusProcessing
	})
	runner.CancelAndWait(IngestKey(3))
	<-observed
	s, _ := runner.StatusOf(IngestKey(3))
	require.Equal(t, StatusFailed, s)
}

func TestBusReplaysLastEvent(t *testing.T) {
	bus := NewBus()
	bus.Publish("k", Event{Status: "synthesizing", Progress: 40, Message: "Turn 2/5"})

	events, cancel := bus.Subscribe("k")
	defer cancel()
	select {
	case event := <-events:
		require.Equal(t, "synthesizing", event.Status)
		require.Equal(t, 40.0, event.Progress)
	case <-time.After(time.Second):
		t.Fatal("no replayed event")
	}
}

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	events, cancel := bus.Subscribe("stream")
	defer cancel()

	bus.Publish("stream", Event{Status: "processing", Progress: 10})
	bus.Publish("stream", Event{Status: "complete", Progress: 100})

	var got []Event
	for len(got) < 2 {
		select {
		case event := <-events:
			got = append(got, event)
		case <-time.After(time.Second):
			t.Fatal("missing events")
		}
	}
	require.Equal(t, "processing", got[0].Status)
	require.Equal(t, "complete", got[1].Status)
	// Progress is monotonic per key.
	require.LessOrEqual(t, got[0].Progress, got[1].Progress)
}

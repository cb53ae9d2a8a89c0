package tether

import (
	"context"
	"testing"
	"time"
)

func TestRelay_CurrentBeforeSend(t *testing.T) {
	r := NewRelay[int]()
	if _, ok := r.Current(); ok {
		t.Error("expected no current value before Send")
	}
}

func TestRelay_ProducerReplaysCurrent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRelay[int]()
	r.Send(1)

	ch := r.Producer(ctx)
	if v := recv(t, ch); v != 1 {
		t.Errorf("expected replayed 1, got %d", v)
	}

	r.Send(2)
	if v := recv(t, ch); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
}

func TestRelay_SignalSkipsCurrent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRelay[int]()
	r.Send(1)

	ch := r.Signal(ctx)
	expectSilent(t, ch, 20*time.Millisecond)

	r.Send(2)
	if v := recv(t, ch); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
}

func TestRelay_PreservesOrderWithSlowConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRelay[int]()
	ch := r.Signal(ctx)

	for i := 0; i < 100; i++ {
		r.Send(i)
	}
	r.End()

	got := expectClosed(t, ch)
	if len(got) != 100 {
		t.Fatalf("expected 100 values, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("expected %d at position %d, got %d", i, i, v)
		}
	}
}

func TestRelay_EndCompletesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRelay[string]()
	signal := r.Signal(ctx)
	producer := r.Producer(ctx)

	r.End()

	expectClosed(t, signal)
	expectClosed(t, producer)

	if !r.Ended() {
		t.Error("expected relay to report ended")
	}
}

func TestRelay_SubscribeAfterEndIsClosed(t *testing.T) {
	r := NewRelay[int]()
	r.Send(1)
	r.End()

	if got := expectClosed(t, r.Producer(context.Background())); len(got) != 0 {
		t.Errorf("expected empty producer after end, got %v", got)
	}
	expectClosed(t, r.Signal(context.Background()))
}

func TestRelay_SendAfterEndIsIgnored(t *testing.T) {
	r := NewRelay[int]()
	r.Send(1)
	r.End()
	r.End()
	r.Send(2)

	if v, _ := r.Current(); v != 1 {
		t.Errorf("expected current to stay 1, got %d", v)
	}
}

func TestRelay_ContextCancelDetachesSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := NewRelay[int]()
	ch := r.Signal(ctx)
	cancel()

	expectClosed(t, ch)

	// Sending after the subscriber detached must not block.
	done := make(chan struct{})
	go func() {
		r.Send(1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("Send blocked on a detached subscriber")
	}
}

func TestRelay_MultipleSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRelay[int]()
	a := r.Signal(ctx)
	b := r.Signal(ctx)

	r.Send(7)

	if v := recv(t, a); v != 7 {
		t.Errorf("subscriber a: expected 7, got %d", v)
	}
	if v := recv(t, b); v != 7 {
		t.Errorf("subscriber b: expected 7, got %d", v)
	}
}

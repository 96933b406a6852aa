package shutdown

import (
	"context"
	"os"
	"testing"
	"time"
)

type fakeNotifier struct {
	notifyCh chan<- os.Signal
	stopped  bool
}

func (f *fakeNotifier) Notify(c chan<- os.Signal, _ ...os.Signal) { f.notifyCh = c }
func (f *fakeNotifier) Stop(c chan<- os.Signal)                   { f.stopped = true }

type fakeProvider struct{ sigs []os.Signal }

func (f fakeProvider) ShutdownSignals() []os.Signal { return f.sigs }

func TestHandler_WaitReturnsOnSignal(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewHandler(notifier, fakeProvider{sigs: []os.Signal{os.Interrupt}})

	done := make(chan struct{})
	go func() {
		h.Wait(context.Background())
		close(done)
	}()

	// Wait for Notify to register the channel before sending.
	deadline := time.Now().Add(time.Second)
	for notifier.notifyCh == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if notifier.notifyCh == nil {
		t.Fatal("Notify was never called")
	}
	notifier.notifyCh <- os.Interrupt

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the signal fired")
	}
	if !notifier.stopped {
		t.Fatal("expected Stop to be called before Wait returns")
	}
}

func TestHandler_WaitReturnsOnContextDone(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewHandler(notifier, fakeProvider{sigs: []os.Signal{os.Interrupt}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Wait(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after ctx was cancelled")
	}
}

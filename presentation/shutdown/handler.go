// Package shutdown wires the process-wide shutdown signal set (PAL/signal)
// to a cancellable wait, so main can block until Ctrl-C/SIGTERM/SIGHUP or
// the parent context ends, whichever comes first.
package shutdown

import (
	"context"
	"os"

	palsignal "rush/infrastructure/PAL/signal"
)

// Notifier abstracts os/signal's package-level Notify/Stop so Handler can
// be tested without touching real OS signal delivery.
type Notifier interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// Handler blocks until a shutdown signal arrives or its context is done.
type Handler struct {
	notifier Notifier
	provider palsignal.Provider
}

func NewHandler(notifier Notifier, provider palsignal.Provider) *Handler {
	return &Handler{notifier: notifier, provider: provider}
}

// Wait blocks until one of the provider's shutdown signals is delivered or
// ctx is done, whichever happens first. It always un-registers its signal
// channel before returning.
func (h *Handler) Wait(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	h.notifier.Notify(ch, h.provider.ShutdownSignals()...)
	defer h.notifier.Stop(ch)

	select {
	case <-ch:
	case <-ctx.Done():
	}
}

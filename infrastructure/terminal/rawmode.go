// Package terminal guards the client's controlling terminal in raw mode
// for the lifetime of a connected session, using golang.org/x/term — the
// one corpus-wide dependency for terminal state, carried indirectly by
// NLipatov-TunGo's own module graph (its bubbletea TUI pulls it in
// transitively) even though TunGo's own code never calls it directly.
package terminal

import (
	"fmt"
	"sync"

	"golang.org/x/term"

	"rush/application"
	"rush/domain/protocol"
)

// RawModeGuard implements application.RawModeGuard over a single terminal
// file descriptor. Enable/Disable are idempotent so a client's shutdown
// path can call Disable unconditionally without checking whether raw mode
// was ever entered.
type RawModeGuard struct {
	fd int

	mu      sync.Mutex
	state   *term.State
	enabled bool
}

func NewRawModeGuard(fd int) *RawModeGuard {
	return &RawModeGuard{fd: fd}
}

// IsTerminal reports whether fd refers to a terminal at all; callers
// should skip raw-mode handling entirely (e.g. when stdin is piped) rather
// than call Enable on a non-terminal fd.
func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

func (g *RawModeGuard) Enable() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.enabled {
		return nil
	}
	state, err := term.MakeRaw(g.fd)
	if err != nil {
		return protocol.NewTunnelError(protocol.KindTransportInit, fmt.Errorf("enter raw mode: %w", err))
	}
	g.state = state
	g.enabled = true
	return nil
}

func (g *RawModeGuard) Disable() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.enabled {
		return nil
	}
	g.enabled = false
	state := g.state
	g.state = nil
	if state == nil {
		return nil
	}
	if err := term.Restore(g.fd, state); err != nil {
		return protocol.NewTunnelError(protocol.KindTransportInit, fmt.Errorf("restore terminal state: %w", err))
	}
	return nil
}

var _ application.RawModeGuard = (*RawModeGuard)(nil)

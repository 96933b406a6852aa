//go:build !windows

// Package pty spawns a login shell on a pseudo-terminal for an
// authenticated local OS user, adapted from
// other_examples/.../artpar-terminal-tunnel/internal/server/pty_unix.go's
// use of github.com/creack/pty, extended with privilege drop and a fixed
// login-shell environment.
package pty

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"rush/application"
	"rush/domain/protocol"
	"rush/infrastructure/settings"
)

// Factory implements application.PTYFactory by looking up the named OS
// user, dropping privileges, and exec'ing their login shell.
type Factory struct{}

func NewFactory() Factory { return Factory{} }

func (Factory) Spawn(username string) (application.PTYSession, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, spawnErr("lookup user %q: %w", username, err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, spawnErr("parse uid: %w", err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, spawnErr("parse gid: %w", err)
	}
	groupIDs, err := u.GroupIds()
	if err != nil {
		return nil, spawnErr("lookup supplementary groups: %w", err)
	}
	groups := make([]uint32, 0, len(groupIDs))
	for _, g := range groupIDs {
		n, convErr := strconv.ParseUint(g, 10, 32)
		if convErr != nil {
			continue
		}
		groups = append(groups, uint32(n))
	}

	loginShell := loginShellFor(u)

	cmd := exec.Command(loginShell)
	cmd.Dir = u.HomeDir
	cmd.Env = []string{
		"TERM=xterm-256color",
		"HOME=" + u.HomeDir,
		"USER=" + u.Username,
		"SHELL=" + loginShell,
		"PATH=/usr/local/bin:/usr/bin:/bin",
	}
	// argv[0] = "-" + basename(shell): the login-shell convention.
	cmd.Args = []string{"-" + filepath.Base(loginShell)}

	sysAttr := &syscall.SysProcAttr{
		Credential: &syscall.Credential{
			Uid:    uint32(uid),
			Gid:    uint32(gid),
			Groups: groups,
		},
		Setsid: true,
	}

	ptmx, err := pty.StartWithAttrs(cmd, &pty.Winsize{
		Rows: settings.DefaultWindowRows,
		Cols: settings.DefaultWindowCols,
	}, sysAttr)
	if err != nil {
		return nil, spawnErr("start pty for %q: %w", username, err)
	}

	return &Session{ptmx: ptmx, cmd: cmd}, nil
}

func spawnErr(format string, args ...any) error {
	return protocol.NewTunnelError(protocol.KindPtySpawn, fmt.Errorf(format, args...))
}

// loginShellFor returns the user's login shell. os/user does not expose
// the passwd shell field portably, so SHELL (inherited from the server
// process's own environment) is the best available signal; /bin/sh is the
// universal fallback.
func loginShellFor(u *user.User) string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// Session implements application.PTYSession over a creack/pty master fd.
type Session struct {
	ptmx *os.File
	cmd  *exec.Cmd

	mu     sync.Mutex
	closed bool
}

func (s *Session) Read(buf []byte) (int, error)   { return s.ptmx.Read(buf) }
func (s *Session) Write(data []byte) (int, error) { return s.ptmx.Write(data) }

func (s *Session) Resize(rows, cols, xPixels, yPixels uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return spawnErr("resize: pty already closed")
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{
		Rows: rows, Cols: cols, X: xPixels, Y: yPixels,
	})
}

// sigNames maps the wire protocol's closed signal-name set to syscall
// signal numbers for delivery to the PTY's foreground process group.
var sigNames = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"TERM": syscall.SIGTERM,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
}

// Signal delivers the named signal to the PTY's foreground process group,
// found via TIOCGPGRP. This reaches the same target as TIOCSIG without
// relying on a Linux-only ioctl constant.
func (s *Session) Signal(name string) error {
	sig, ok := sigNames[name]
	if !ok {
		return spawnErr("signal: unknown signal name %q", name)
	}
	pgid, err := unix.IoctlGetInt(int(s.ptmx.Fd()), unix.TIOCGPGRP)
	if err != nil {
		return spawnErr("TIOCGPGRP: %w", err)
	}
	if err := syscall.Kill(-pgid, sig); err != nil {
		return spawnErr("kill pgrp %d with %s: %w", pgid, name, err)
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.cmd.Process != nil {
		_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGHUP)
	}
	closeErr := s.ptmx.Close()
	_, _ = s.cmd.Process.Wait()
	return closeErr
}

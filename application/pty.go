package application

// PTYSession is a server-side spawned pseudo-terminal bound to one
// authenticated OS user's login shell.
type PTYSession interface {
	// Read reads shell output from the PTY master.
	Read(buf []byte) (int, error)
	// Write writes bytes to the PTY master (keystrokes/input).
	Write(data []byte) (int, error)
	// Resize changes the PTY window size.
	Resize(rows, cols, xPixels, yPixels uint16) error
	// Signal delivers signal to the PTY's foreground process group.
	Signal(name string) error
	// Close closes the PTY master and reaps the child process.
	Close() error
}

// PTYFactory spawns a PTYSession for an authenticated local OS user.
type PTYFactory interface {
	Spawn(username string) (PTYSession, error)
}

// Authenticator verifies a username/password pair against the host's local
// account database (PAM in production).
type Authenticator interface {
	// Authenticate returns nil on success, or a human-readable error
	// suitable for sending back to the client as an AuthResponse payload.
	Authenticate(username, password string) error
}

// RawModeGuard scopes terminal raw-mode acquisition on the client so it is
// always restored, on every exit path.
type RawModeGuard interface {
	Enable() error
	Disable() error
}

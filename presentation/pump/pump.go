// Package pump implements the read loops that bridge a local byte source
// (the server's PTY master, the client's stdin) to the encrypted
// transport, one read, one send, matching the async-reader goroutine
// style used throughout NLipatov-TunGo's connection workers.
package pump

import (
	"context"
	"io"
)

// ReadLoop reads from r in bufSize chunks and calls send once per
// non-empty read, until r returns an error (including io.EOF), send
// returns an error, or ctx is cancelled. It never calls send with an empty
// slice and never sends again after any of those three stop conditions.
func ReadLoop(ctx context.Context, r io.Reader, bufSize int, send func([]byte) error) {
	buf := make([]byte, bufSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := r.Read(buf)
		if ctx.Err() != nil {
			return
		}
		if n > 0 {
			if sendErr := send(buf[:n]); sendErr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

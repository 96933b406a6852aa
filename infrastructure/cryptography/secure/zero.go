// Package secure holds small best-effort memory-hygiene helpers for key
// material.
package secure

import "runtime"

// ZeroBytes overwrites b with zeros. runtime.KeepAlive prevents the
// compiler from eliminating the store as dead code; this is best-effort
// defense, not a guarantee the GC never copied b first.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

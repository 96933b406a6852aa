package shutdown

import (
	"os"
	"os/signal"
)

// OSNotifier is the production Notifier, delegating directly to os/signal.
type OSNotifier struct{}

func (OSNotifier) Notify(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
func (OSNotifier) Stop(c chan<- os.Signal)                     { signal.Stop(c) }

var _ Notifier = OSNotifier{}

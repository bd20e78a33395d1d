package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals cancel a SignalContext.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. After
// stop, signals get their default behavior again.
func SignalContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}

package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext is cancelled by the first SIGINT or SIGTERM. A second signal
// calls onForce, which by default exits the process, for a session that does
// not wind down.
type SignalContext struct {
	context.Context
	Cancel func()

	sigCh    chan os.Signal
	released chan struct{}
	release  sync.Once
	onForce  func()

	mu     sync.Mutex
	sigVal os.Signal
}

// NewSignalContext starts listening for signals until Release.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context:  ctx,
		Cancel:   cancel,
		sigCh:    make(chan os.Signal, 2),
		released: make(chan struct{}),
		onForce:  func() { os.Exit(130) },
	}
	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go sc.loop()
	return sc
}

func (sc *SignalContext) loop() {
	select {
	case sig := <-sc.sigCh:
		sc.mu.Lock()
		sc.sigVal = sig
		sc.mu.Unlock()
		sc.Cancel()
	case <-sc.released:
		return
	}
	select {
	case <-sc.sigCh:
		sc.onForce()
	case <-sc.released:
	}
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// Release stops signal delivery and cancels the context.
func (sc *SignalContext) Release() {
	sc.release.Do(func() {
		signal.Stop(sc.sigCh)
		close(sc.released)
		sc.Cancel()
	})
}

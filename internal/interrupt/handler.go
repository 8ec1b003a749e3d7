// Package interrupt turns SIGINT/SIGTERM into a graceful stop: the first
// signal cancels the run context so a stage can save its progress, a second
// one within a short window exits at once.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// Window is the time within which a second signal aborts.
const Window = 2 * time.Second

const (
	stopMessage  = "\nInterrupted: finishing the current row and saving progress (Ctrl+C again to abort)."
	abortMessage = "\nAborted. Outputs of this stage may be incomplete."
)

// Handler cancels a context on the first signal and exits on a second one.
type Handler struct {
	mu          sync.Mutex
	first       time.Time
	interrupted bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}

	// Injected dependencies (for testing)
	exit   func(int)
	now    func() time.Time
	stderr io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh <-chan os.Signal
	Exit  func(int)
	Now   func() time.Time
	// Stderr must be safe for concurrent writes.
	Stderr io.Writer
}

// New creates a handler listening for SIGINT and SIGTERM. The returned
// context is canceled on the first signal.
func New(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return NewWithOptions(parent, Options{SigCh: sigCh})
}

// NewWithOptions creates a handler with injectable dependencies.
func NewWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		cancel: cancel,
		done:   make(chan struct{}),
		exit:   opts.Exit,
		now:    opts.Now,
		stderr: opts.Stderr,
	}
	if h.exit == nil {
		h.exit = os.Exit
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.stderr == nil {
		h.stderr = os.Stderr
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}
	return h, ctx
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if h.handle() {
				return
			}
		}
	}
}

// handle processes one signal and reports whether listening should end.
func (h *Handler) handle() bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return true
	}
	now := h.now()

	if !h.interrupted {
		h.interrupted = true
		h.first = now
		h.cancel()
		h.mu.Unlock()
		_, _ = fmt.Fprintln(h.stderr, stopMessage)
		return false
	}

	if now.Sub(h.first) > Window {
		// Too late for an abort: treat it as a fresh first signal.
		h.first = now
		h.mu.Unlock()
		return false
	}
	h.mu.Unlock()

	_, _ = fmt.Fprintln(h.stderr, abortMessage)
	h.exit(ExitInterrupt)
	return true
}

// Interrupted reports whether at least one signal was received.
func (h *Handler) Interrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Stop releases the signal handlers. It is safe to call more than once.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
}

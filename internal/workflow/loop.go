package workflow

import (
	"context"
	"log/slog"
	"time"

	"quiltrender/internal/logging"
	"quiltrender/internal/quilt"
	"quiltrender/internal/renderjob"
)

// MinTickInterval is the shortest tick period the loop accepts.
const MinTickInterval = time.Millisecond

type hookKind int

const (
	hookInit hookKind = iota
	hookPre
	hookPost
	hookComplete
	hookCancel
	hookFailed
)

type hookEvent struct {
	kind hookKind
	buf  quilt.Buffer
	err  error
}

// hookForwarder moves renderer callbacks onto the loop goroutine.
type hookForwarder struct {
	events chan<- hookEvent
	done   <-chan struct{}
}

func (f hookForwarder) send(ev hookEvent) {
	select {
	case f.events <- ev:
	case <-f.done:
	}
}

func (f hookForwarder) OnInit()                 { f.send(hookEvent{kind: hookInit}) }
func (f hookForwarder) OnPre()                  { f.send(hookEvent{kind: hookPre}) }
func (f hookForwarder) OnPost(buf quilt.Buffer) { f.send(hookEvent{kind: hookPost, buf: buf}) }
func (f hookForwarder) OnComplete()             { f.send(hookEvent{kind: hookComplete}) }
func (f hookForwarder) OnCancel()               { f.send(hookEvent{kind: hookCancel}) }
func (f hookForwarder) OnFailed(err error)      { f.send(hookEvent{kind: hookFailed, err: err}) }

// Loop is the host event loop of a render job. It is the only goroutine that
// touches the machine.
type Loop struct {
	interval time.Duration
	logger   *slog.Logger
}

// NewLoop returns a loop ticking every interval, floored at MinTickInterval.
func NewLoop(interval time.Duration, logger *slog.Logger) *Loop {
	if interval < MinTickInterval {
		interval = MinTickInterval
	}
	return &Loop{interval: interval, logger: logging.NewComponentLogger(logger, "workflow")}
}

// Interval returns the tick period.
func (l *Loop) Interval() time.Duration { return l.interval }

// Run drives m until it finishes and returns its outcome. Cancelling ctx asks
// the machine to stop; Run still waits for the unwind so files and settings
// are cleaned up.
func (l *Loop) Run(ctx context.Context, m *renderjob.Machine, renderer renderjob.Renderer) renderjob.Outcome {
	events := make(chan hookEvent, 16)
	done := make(chan struct{})
	defer close(done)

	unsubscribe := renderer.Subscribe(hookForwarder{events: events, done: done})
	defer unsubscribe()

	// Ticks keep running after ctx ends so the unwind can finish its work.
	runCtx := context.WithoutCancel(ctx)
	stop := ctx.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			stop = nil
			l.logger.Info("cancellation requested", logging.String("reason", context.Cause(ctx).Error()))
			m.RequestCancel()
		case ev := <-events:
			dispatch(m, ev)
			if m.Done() {
				return m.Outcome()
			}
		case <-ticker.C:
			if m.Tick(runCtx) {
				return m.Outcome()
			}
		}
	}
}

func dispatch(h renderjob.Hooks, ev hookEvent) {
	switch ev.kind {
	case hookInit:
		h.OnInit()
	case hookPre:
		h.OnPre()
	case hookPost:
		h.OnPost(ev.buf)
	case hookComplete:
		h.OnComplete()
	case hookCancel:
		h.OnCancel()
	case hookFailed:
		h.OnFailed(ev.err)
	}
}

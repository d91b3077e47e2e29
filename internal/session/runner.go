package session

import (
	"sync"
	"time"

	"typestress/internal/models"
)

// Runner drives a session's periodic metrics task. One runner is started on
// Idle -> Active and stopped on any transition away from Active.
type Runner struct {
	session  *Session
	interval time.Duration
	sink     func(models.MetricsSnapshot)

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartRunner begins ticking the session at the given interval. Each tick
// recomputes the metrics snapshot and hands it to sink; progress sampling
// happens inside Session.Tick, so the sink only observes the derived view.
func StartRunner(s *Session, interval time.Duration, sink func(models.MetricsSnapshot)) *Runner {
	r := &Runner{
		session:  s,
		interval: interval,
		sink:     sink,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Runner) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			snap, ok := r.session.Tick(now)
			if ok && r.sink != nil {
				r.sink(snap)
			}
		}
	}
}

// Stop cancels the metrics task and blocks until the task goroutine has
// exited. After Stop returns no further tick can touch the session, which
// is what lets finishing compute final metrics without racing a tick.
// Stop is safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	<-r.done
}

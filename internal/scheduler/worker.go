package scheduler

import (
	"context"
	"time"

	logx "controlcenter/pkg/logx"
)

func (s *Service) enqueue(j job) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		s.log.Debug("scheduler not running; dropping job", logx.String("job", j.name))
		return
	}

	if j.opt.Overlap == OverlapSkipIfRunning && j.state != nil {
		j.state.mu.Lock()
		running := j.state.running
		j.state.mu.Unlock()
		if running {
			s.log.Debug("previous run still active; skipping", logx.String("job", j.name))
			return
		}
	}

	select {
	case q <- j:
	default:
		s.log.Warn("scheduler queue full; dropping job",
			logx.String("job", j.name), logx.Int("queue_len", len(q)))
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan job) {
	for {
		// Closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case j := <-queue:
			s.execOne(ctx, j)
		}
	}
}

func (s *Service) execOne(ctx context.Context, j job) {
	start := time.Now()

	if j.state != nil {
		j.state.mu.Lock()
		j.state.running = true
		j.state.mu.Unlock()
		defer func() {
			j.state.mu.Lock()
			j.state.running = false
			j.state.mu.Unlock()
		}()
	}

	attempts := 1 + j.opt.RetryMax
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		// Per-attempt timeout so a timed-out attempt does not poison retries.
		runCtx := ctx
		var cancel func()
		if j.timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, j.timeout)
		}
		err = j.run(runCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil || attempt == attempts || ctx.Err() != nil {
			break
		}
		s.log.Debug("job retry", logx.String("job", j.name), logx.Int("attempt", attempt+1), logx.Err(err))
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(500 * time.Millisecond << (attempt - 1)):
		}
		if ctx.Err() != nil {
			break
		}
	}

	dur := time.Since(start)
	item := HistoryItem{ID: j.id, Name: j.name, Started: start, Duration: dur}
	if err != nil {
		item.Error = err.Error()
		s.log.Warn("job failed", logx.String("job", j.name), logx.Duration("dur", dur), logx.Err(err))
	} else {
		s.log.Debug("job done", logx.String("job", j.name), logx.Duration("dur", dur))
	}

	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.history = append(s.history, item)
	size := s.cfg.HistorySize
	if size <= 0 {
		size = 200
	}
	if len(s.history) > size {
		s.history = s.history[len(s.history)-size:]
	}
}

package scheduler

import (
	"context"
	"time"

	"mmbot/internal/logger"
)

// FixedScheduler 以固定间隔执行任务，任务执行期间不会重入。
// 单次执行耗时超过间隔时，下一次在上一次结束后立即开始。
type FixedScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	newTimer func(time.Duration) (<-chan time.Time, func() bool)
}

func NewFixedScheduler(name string, interval time.Duration) *FixedScheduler {
	return &FixedScheduler{Name: name, Interval: interval}
}

// Run 阻塞直到 ctx 结束，返回 ctx.Err()。
func (s *FixedScheduler) Run(ctx context.Context, task func(context.Context)) error {
	if s == nil || task == nil {
		return nil
	}
	if s.Interval <= 0 {
		logger.Warnf("FixedScheduler %s: invalid interval=%s, exit", s.Name, s.Interval)
		return nil
	}
	newTimer := s.newTimer
	if newTimer == nil {
		newTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
			t := time.NewTimer(d)
			return t.C, t.Stop
		}
	}
	logger.Debugf("FixedScheduler %s: started interval=%s run_immediately=%v", s.Name, s.Interval, s.RunImmediately)

	if s.RunImmediately {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		task(ctx)
	}
	for {
		c, stop := newTimer(s.Interval)
		select {
		case <-ctx.Done():
			stop()
			logger.Debugf("FixedScheduler %s: ctx done, exit", s.Name)
			return ctx.Err()
		case <-c:
		}
		task(ctx)
	}
}

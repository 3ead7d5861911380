package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job описывает периодическую задачу.
type Job func(ctx context.Context) error

type scheduledJob struct {
	name     string
	schedule cron.Schedule
	job      Job
}

// Scheduler запускает задачи по cron-расписанию.
// Запуск задачи пропускается, пока предыдущий еще работает.
type Scheduler struct {
	logger *slog.Logger

	mu   sync.Mutex
	jobs []scheduledJob
}

// NewScheduler создает пустой scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

// Add добавляет задачу; spec задается стандартным cron или дескриптором (@every 1m, @daily).
func (s *Scheduler) Add(name, spec string, job Job) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("job %s: parse schedule %q: %w", name, spec, err)
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, scheduledJob{name: name, schedule: schedule, job: job})
	s.mu.Unlock()
	return nil
}

// Len возвращает число зарегистрированных задач.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start запускает scheduler до отмены контекста и дожидается активных задач.
func (s *Scheduler) Start(ctx context.Context) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	s.mu.Lock()
	for _, sj := range s.jobs {
		sj := sj
		c.Schedule(sj.schedule, cron.FuncJob(func() {
			if err := sj.job(ctx); err != nil {
				s.logger.Warn("scheduled job failed", "job", sj.name, "err", err)
			}
		}))
	}
	s.mu.Unlock()

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/opus-domini/mergington/internal/validate"
)

const (
	defaultMaxRows      = 10000
	defaultPruneTimeout = 30 * time.Second
)

type journalRepo interface {
	PruneEnrollments(ctx context.Context, maxRows int) (int64, error)
}

// Options configures journal retention.
type Options struct {
	// Spec is a standard 5-field cron expression or @descriptor.
	Spec    string
	MaxRows int
	Timeout time.Duration
	// OnPrune receives the number of rows removed by each run.
	OnPrune func(removed int64)
}

// Service prunes the enrollment journal on a cron schedule.
type Service struct {
	repo      journalRepo
	opts      Options
	cron      *cron.Cron
	startOnce sync.Once
	stopOnce  sync.Once

	mu     sync.Mutex
	runCtx context.Context
}

// New validates the schedule and prepares the service. Nothing runs until
// Start.
func New(repo journalRepo, opts Options) (*Service, error) {
	schedule, err := validate.ParseCron(opts.Spec)
	if err != nil {
		return nil, err
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = defaultMaxRows
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPruneTimeout
	}
	s := &Service{
		repo:   repo,
		opts:   opts,
		cron:   cron.New(),
		runCtx: context.Background(),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.tick))
	return s, nil
}

// Start runs the cron loop until Stop or until parent is cancelled.
func (s *Service) Start(parent context.Context) {
	if s == nil {
		return
	}
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.runCtx = parent
		s.mu.Unlock()
		s.cron.Start()
		slog.Info("journal retention scheduled", "cron", s.opts.Spec, "max_rows", s.opts.MaxRows)
	})
}

// Stop halts the schedule and waits for an in-flight prune or ctx.
func (s *Service) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		done := s.cron.Stop()
		select {
		case <-done.Done():
		case <-ctx.Done():
		}
	})
}

// Next reports when the next prune is due; zero before Start.
func (s *Service) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce prunes the journal immediately.
func (s *Service) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	removed, err := s.repo.PruneEnrollments(ctx, s.opts.MaxRows)
	if err != nil {
		return 0, err
	}
	if s.opts.OnPrune != nil {
		s.opts.OnPrune(removed)
	}
	return removed, nil
}

func (s *Service) tick() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	removed, err := s.RunOnce(ctx)
	if err != nil {
		slog.Warn("journal prune failed", "err", err)
		return
	}
	if removed > 0 {
		slog.Info("journal pruned", "removed", removed, "max_rows", s.opts.MaxRows)
	}
}

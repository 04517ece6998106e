package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/lightlink-network/ll-bridge-collector/lock"
	"github.com/lightlink-network/ll-bridge-collector/metrics"
)

type Task struct {
	Name    string
	Enabled bool
	Run     func(ctx context.Context) error
}

type TaskState int

const (
	Idle TaskState = iota
	Running
)

func (s TaskState) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

type SchedulerOpts struct {
	Tasks []Task
	// Interval between ticks.
	Interval time.Duration
	// InitialDelay before the first tick.
	InitialDelay time.Duration
	// Cooldown after a cycle during which ticks are skipped.
	Cooldown time.Duration
	// CycleTimeout bounds each task run. Zero means no bound.
	CycleTimeout time.Duration
	// Locker, when set, must be held for a cycle to run.
	Locker  lock.Locker
	LockTTL time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Scheduler runs the enabled tasks together on every tick, never overlapping
// two cycles.
type Scheduler struct {
	tasks []Task
	opts  SchedulerOpts
	log   *slog.Logger
	now   func() time.Time

	mu        sync.Mutex
	states    map[string]TaskState
	busyUntil time.Time
}

func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = opts.Interval + opts.CycleTimeout
	}

	states := map[string]TaskState{}
	for _, t := range opts.Tasks {
		if t.Run == nil {
			return nil, fmt.Errorf("task %s has no run func", t.Name)
		}
		if _, dup := states[t.Name]; dup {
			return nil, fmt.Errorf("duplicate task %s", t.Name)
		}
		states[t.Name] = Idle
	}

	return &Scheduler{
		tasks:  opts.Tasks,
		opts:   opts,
		log:    opts.Logger,
		now:    time.Now,
		states: states,
	}, nil
}

// State reports the state of the named task.
func (s *Scheduler) State(name string) TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[name]
}

// Run ticks every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	start := gocron.WithStartImmediately()
	if s.opts.InitialDelay > 0 {
		start = gocron.WithStartDateTime(s.now().Add(s.opts.InitialDelay))
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.opts.Interval),
		gocron.NewTask(func() { s.Tick(ctx) }),
		gocron.WithName("bridge-collector-cycle"),
		gocron.WithStartAt(start),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule cycle: %w", err)
	}

	var enabled []string
	for _, t := range s.tasks {
		if t.Enabled {
			enabled = append(enabled, t.Name)
		}
	}
	s.log.Info("scheduler started", "interval", s.opts.Interval, "cooldown", s.opts.Cooldown, "tasks", enabled)

	sched.Start()
	<-ctx.Done()

	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}

// Tick runs one cycle unless a cycle is still running or cooling down. It
// blocks until every task of the cycle returned and reports whether it ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	enabled := s.begin()
	if enabled == nil {
		return false
	}

	ran := false
	defer func() { s.end(ran) }()

	if s.opts.Locker != nil {
		release, ok, err := s.opts.Locker.Acquire(ctx, "cycle", s.opts.LockTTL)
		if err != nil {
			s.log.Error("failed to acquire cycle lock", "error", err)
			return false
		}
		if !ok {
			s.log.Debug("cycle lock held by another instance, skipping tick")
			s.opts.Metrics.TicksSkipped.Inc()
			return false
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("failed to release cycle lock", "error", err)
			}
		}()
	}

	var wg sync.WaitGroup
	for _, t := range enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runTask(ctx, t)
		}()
	}
	wg.Wait()

	ran = true
	return true
}

// begin marks the enabled tasks running, or returns nil when the tick must be
// skipped.
func (s *Scheduler) begin() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, state := range s.states {
		if state == Running {
			s.log.Debug("cycle still running, skipping tick", "task", name)
			s.opts.Metrics.TicksSkipped.Inc()
			return nil
		}
	}
	if s.now().Before(s.busyUntil) {
		s.log.Debug("cooling down, skipping tick", "until", s.busyUntil)
		s.opts.Metrics.TicksSkipped.Inc()
		return nil
	}

	var enabled []Task
	for _, t := range s.tasks {
		if t.Enabled {
			enabled = append(enabled, t)
			s.states[t.Name] = Running
		}
	}
	return enabled
}

func (s *Scheduler) end(ran bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.states {
		s.states[name] = Idle
	}
	if ran {
		s.busyUntil = s.now().Add(s.opts.Cooldown)
	}
}

func (s *Scheduler) runTask(ctx context.Context, t Task) {
	log := s.log.With("task", t.Name)
	start := s.now()

	defer func() {
		s.opts.Metrics.CycleDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			s.opts.Metrics.CycleFailures.WithLabelValues(t.Name).Inc()
			log.Error("task panicked", "panic", r)
		}
	}()

	if s.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CycleTimeout)
		defer cancel()
	}

	if err := t.Run(ctx); err != nil {
		s.opts.Metrics.CycleFailures.WithLabelValues(t.Name).Inc()
		log.Error("task failed", "error", err)
		return
	}
	log.Debug("task finished", "duration", time.Since(start))
}

// Package scheduler runs the periodic maintenance jobs of the library.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// ErrJobNotFound is returned for operations on an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// Status is the state of a job's most recent run.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// JobFunc is the work a job performs. The context is cancelled when the scheduler stops.
type JobFunc func(ctx context.Context) error

// Job describes a job to register.
type Job struct {
	ID       string
	Name     string
	Schedule string // cron expression, used when Definition is nil
	// Definition overrides Schedule, mostly for tests.
	Definition gocron.JobDefinition
	Func       JobFunc
	// RunOnStart triggers one run as soon as the scheduler starts.
	RunOnStart bool
}

// JobInfo is a snapshot of a job's bookkeeping.
type JobInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Schedule   string    `json:"schedule"`
	Status     Status    `json:"status"`
	LastRun    time.Time `json:"last_run"`
	NextRun    time.Time `json:"next_run"`
	RunCount   int       `json:"run_count"`
	ErrorCount int       `json:"error_count"`
	LastError  string    `json:"last_error,omitempty"`
}

type entry struct {
	info       JobInfo
	job        gocron.Job
	runOnStart bool
}

// Scheduler wraps gocron and keeps statistics for every job.
// All jobs run in singleton mode: a run that is still busy makes the next tick wait.
type Scheduler struct {
	cron   gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*entry
}

// New creates a stopped scheduler.
func New() (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLogger(newGocronLogger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*entry),
	}, nil
}

// Add registers a job. Adding an id twice is an error.
func (s *Scheduler) Add(j Job) error {
	if j.ID == "" || j.Func == nil {
		return errors.New("job needs an id and a function")
	}
	def := j.Definition
	if def == nil {
		if strings.TrimSpace(j.Schedule) == "" {
			return fmt.Errorf("job %s has no schedule", j.ID)
		}
		def = gocron.CronJob(j.Schedule, false)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return fmt.Errorf("job %s already registered", j.ID)
	}

	job, err := s.cron.NewJob(def,
		gocron.NewTask(s.run, j.ID, j.Func),
		gocron.WithName(j.ID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", j.ID, err)
	}

	s.jobs[j.ID] = &entry{
		info: JobInfo{
			ID:       j.ID,
			Name:     j.Name,
			Schedule: j.Schedule,
			Status:   StatusScheduled,
		},
		job:        job,
		runOnStart: j.RunOnStart,
	}
	log.Debug("Added job", "id", j.ID, "name", j.Name, "schedule", j.Schedule)
	return nil
}

// Start begins executing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()

	s.mu.Lock()
	var immediate []string
	n := len(s.jobs)
	for id, e := range s.jobs {
		if next, err := e.job.NextRun(); err == nil {
			e.info.NextRun = next
		}
		if e.runOnStart {
			immediate = append(immediate, id)
		}
	}
	s.mu.Unlock()

	slices.Sort(immediate)
	for _, id := range immediate {
		if err := s.RunNow(id); err != nil {
			log.Error("failed to run job on start", "id", id, "error", err)
		}
	}
	log.Info("Job scheduler started", "jobs", n)
}

// Stop cancels running jobs and shuts gocron down.
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.cron.Shutdown()
}

// RunNow triggers a job outside of its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	e, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err := e.job.RunNow(); err != nil {
		return fmt.Errorf("failed to trigger job %s: %w", id, err)
	}
	return nil
}

// Job returns a snapshot of one job.
func (s *Scheduler) Job(id string) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return JobInfo{}, false
	}
	return e.info, true
}

// Jobs returns snapshots of all jobs ordered by id.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, e.info)
	}
	slices.SortFunc(out, func(a, b JobInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (s *Scheduler) run(id string, fn JobFunc) {
	s.update(id, func(e *entry) {
		e.info.Status = StatusRunning
		e.info.LastRun = time.Now()
		e.info.RunCount++
	})

	log.Info("Starting job", "id", id)
	err := fn(s.ctx)

	s.update(id, func(e *entry) {
		if next, nerr := e.job.NextRun(); nerr == nil {
			e.info.NextRun = next
		}
		if err != nil {
			e.info.Status = StatusFailed
			e.info.ErrorCount++
			e.info.LastError = err.Error()
			return
		}
		e.info.Status = StatusCompleted
		e.info.LastError = ""
	})

	if err != nil {
		log.Error("Job failed", "id", id, "error", err)
		return
	}
	log.Info("Job completed", "id", id)
}

func (s *Scheduler) update(id string, fn func(*entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[id]; ok {
		fn(e)
	}
}

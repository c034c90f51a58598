package cron

import (
	"context"
	"fmt"
	"time"
)

// Job is a unit of periodic work run by a Service. Names label the job
// metrics and must be unique within a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs of one Service in run order.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry builds a registry from jobs. Nil jobs and repeated names are
// dropped.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{names: make(map[string]struct{})}
	for _, job := range jobs {
		_ = registry.Register(job)
	}
	return registry
}

// Register appends job. A second job with the same name is rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	name := job.Name()
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// WithTimeout bounds each run of job.
func WithTimeout(job Job, timeout time.Duration) Job {
	if job == nil || timeout <= 0 {
		return job
	}
	return &timedJob{Job: job, timeout: timeout}
}

type timedJob struct {
	Job
	timeout time.Duration
}

func (t *timedJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Job.Run(ctx)
}

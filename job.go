package frames2mod

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Result is the single notification a Job sends when it is finished.
type Result struct {
	OK      bool
	Message string
	Package *Package
	Err     error
	Elapsed time.Duration
}

// A Job is one assembly running on its own goroutine.
type Job struct {
	ID   string
	Set  PortraitSet
	Root string

	result   Result
	finished chan struct{}
	done     chan Result
}

// Start runs a.Assemble for set in the background.
func Start(ctx context.Context, a *Assembler, set PortraitSet, root string) *Job {
	j := &Job{
		ID:       uuid.NewString(),
		Set:      set,
		Root:     root,
		finished: make(chan struct{}),
		done:     make(chan Result, 1),
	}
	go func() {
		defer close(j.done)
		t0 := time.Now()
		p, err := a.Assemble(ctx, set, root)
		r := Result{OK: err == nil, Package: p, Err: err, Elapsed: time.Since(t0)}
		if err != nil {
			r.Message = err.Error()
		} else {
			r.Message = p.Summary()
		}
		j.result = r
		close(j.finished)
		j.done <- r
	}()
	return j
}

// Done yields the Result once, then is closed.
func (j *Job) Done() <-chan Result {
	return j.done
}

// Wait blocks until the job is finished. It can be called any number of
// times, also after the Result was received from Done.
func (j *Job) Wait() Result {
	<-j.finished
	return j.result
}

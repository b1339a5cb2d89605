package texpack

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Job tracks one packing call submitted to a Packer.
type Job struct {
	id   string
	req  Request
	plan Plan

	state   atomic.Int32
	compute atomic.Int32
	raster  atomic.Int32

	once   sync.Once
	done   chan struct{}
	err    error
	result Image
}

func newJob(req Request) *Job {
	return &Job{
		id:   uuid.NewString(),
		req:  req,
		plan: PlanPasses(req),
		done: make(chan struct{}),
	}
}

// ID returns the job's unique identifier.
func (j *Job) ID() string { return j.id }

// Request returns the packer's copy of the request.
func (j *Job) Request() Request { return j.req }

// Plan returns the passes planned for the job.
func (j *Job) Plan() Plan { return j.plan }

// State returns the current sequence state.
func (j *Job) State() SequenceState { return SequenceState(j.state.Load()) }

// Done is closed when the job reaches StateDone.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job is done or ctx ends, and returns the job error
// or the context error.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the job error. It is nil until the job is done, and nil for a
// successful job.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Result returns the final image of a successful job, or nil. The image
// belongs to the Packer and is replaced by later jobs.
func (j *Job) Result() Image {
	select {
	case <-j.done:
		return j.result
	default:
		return nil
	}
}

// Passes returns how many compute and raster passes were submitted.
func (j *Job) Passes() (compute, raster int) {
	return int(j.compute.Load()), int(j.raster.Load())
}

func (j *Job) setState(s SequenceState) { j.state.Store(int32(s)) }

// finish records the outcome and closes Done. Later calls are ignored.
func (j *Job) finish(result Image, err error) bool {
	first := false
	j.once.Do(func() {
		first = true
		j.result = result
		j.err = err
		j.setState(StateDone)
		close(j.done)
	})
	return first
}

package texpack

import (
	"fmt"
	"log/slog"
	"sync"
)

// Packer packs four contributions into the channels of one image.
//
// One packing call is in flight at a time. A request submitted while another
// is in flight is queued and started, in submission order, when the previous
// call is done. Packer never blocks on GPU work: passes are submitted to the
// Executor and the sequence advances from its completion callbacks.
//
// All methods are safe for concurrent use.
type Packer struct {
	exec     Executor
	exporter Exporter
	logger   *slog.Logger

	mu      sync.Mutex
	targets TargetPair
	current *Job
	seq     *Sequencer
	queue   []*Job
	closed  bool
}

// New creates a Packer running passes on exec.
func New(exec Executor, opts ...Option) *Packer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		propagateLogger(exec, o.logger)
	}
	return &Packer{
		exec:     exec,
		exporter: o.exporter,
		logger:   o.logger,
	}
}

func (p *Packer) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return Logger()
}

// Pack validates req and starts it, or queues it behind the call in flight.
//
// Validation errors are returned synchronously. So is a target allocation
// failure when the request starts immediately; a queued request reports it
// through its Job. Pass and export failures are always reported through the
// Job.
func (p *Packer) Pack(req Request) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := newJob(req)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if p.current != nil {
		p.queue = append(p.queue, job)
		p.log().Debug("texpack: job queued", "job", job.id, "state", job.State(), "pending", len(p.queue))
		p.mu.Unlock()
		return job, nil
	}
	submit, err := p.startLocked(job)
	p.mu.Unlock()

	if err != nil {
		job.finish(nil, err)
		return nil, err
	}
	submit()
	return job, nil
}

// Preview packs req without export.
func (p *Packer) Preview(req Request) (*Job, error) {
	req.Finalize = false
	return p.Pack(req)
}

// Finalize packs req and exports the result.
func (p *Packer) Finalize(req Request) (*Job, error) {
	req.Finalize = true
	return p.Pack(req)
}

// Targets returns the current target pair. The second image holds the most
// recent result. Both are nil before the first call and after Close.
func (p *Packer) Targets() (first, second Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.targets.First(), p.targets.Second()
}

// Pending returns the number of queued requests.
func (p *Packer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close releases the targets and abandons the call in flight and all queued
// calls with ErrClosed. Completions that arrive afterwards are ignored.
// Close is idempotent.
func (p *Packer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.targets.Release()
	abandoned := p.queue
	if p.current != nil {
		abandoned = append([]*Job{p.current}, abandoned...)
		p.seq.Abandon()
	}
	p.current, p.seq, p.queue = nil, nil, nil
	p.mu.Unlock()

	for _, job := range abandoned {
		job.finish(nil, ErrClosed)
	}
	p.log().Info("texpack: packer closed", "abandoned", len(abandoned))
}

// startLocked makes job current: it ensures the targets and returns the
// function submitting the compute pass, to be called without the lock.
func (p *Packer) startLocked(job *Job) (func(), error) {
	req := job.req
	allocated, err := p.targets.Ensure(p.exec, req.Resolution, req.Format)
	if err != nil {
		p.log().Warn("texpack: target allocation failed", "job", job.id, "state", job.State(), "err", err)
		return nil, err
	}
	if allocated {
		p.log().Info("texpack: targets allocated", "job", job.id, "state", job.State(),
			"resolution", req.Resolution, "format", req.Format)
	} else {
		p.log().Debug("texpack: targets reused", "job", job.id, "state", job.State())
	}

	seq := NewSequencer(job.plan.UseRaster, req.Finalize)
	tok, err := seq.SubmitCompute()
	if err != nil {
		return nil, err
	}
	p.current, p.seq = job, seq
	job.setState(seq.State())
	job.compute.Add(1)

	dst := p.targets.Second()
	plan := job.plan
	p.log().Debug("texpack: compute submitted", "job", job.id, "state", job.State(),
		"raster", plan.UseRaster, "active", plan.Compute.Active())

	return func() {
		p.exec.ComputePass(plan.Sources, dst, plan.Compute, true, func(err error) {
			p.computeDone(job, tok, err)
		})
	}, nil
}

// staleLocked reports whether a completion for job must be ignored.
func (p *Packer) staleLocked(job *Job) bool {
	return p.closed || p.current != job || !p.targets.Ready()
}

func (p *Packer) computeDone(job *Job, tok Token, passErr error) {
	p.mu.Lock()
	if p.staleLocked(job) {
		p.mu.Unlock()
		p.log().Warn("texpack: stale compute completion ignored", "job", job.id, "state", job.State())
		return
	}
	if passErr != nil {
		p.failLocked(job, tok, &PassError{Pass: PassCompute, Err: passErr})
		return
	}
	step, rasterTok, err := p.seq.ComputeDone(tok)
	if err != nil {
		p.mu.Unlock()
		p.log().Warn("texpack: compute completion dropped", "job", job.id, "state", job.State(), "err", err)
		return
	}
	if step != StepSubmitRaster {
		p.completeLocked(job, step)
		return
	}
	job.setState(p.seq.State())

	p.targets.Swap()
	src, dst := p.targets.First(), p.targets.Second()
	params := job.plan.Raster
	job.raster.Add(1)
	p.log().Debug("texpack: raster submitted", "job", job.id, "state", job.State())
	p.mu.Unlock()

	p.exec.RasterPass(src, dst, params, func(err error) {
		p.rasterDone(job, rasterTok, err)
	})
}

func (p *Packer) rasterDone(job *Job, tok Token, passErr error) {
	p.mu.Lock()
	if p.staleLocked(job) {
		p.mu.Unlock()
		p.log().Warn("texpack: stale raster completion ignored", "job", job.id, "state", job.State())
		return
	}
	if passErr != nil {
		p.failLocked(job, tok, &PassError{Pass: PassRaster, Err: passErr})
		return
	}
	step, err := p.seq.RasterDone(tok)
	if err != nil {
		p.mu.Unlock()
		p.log().Warn("texpack: raster completion dropped", "job", job.id, "state", job.State(), "err", err)
		return
	}
	p.completeLocked(job, step)
}

// failLocked ends job with err and starts the next queued job. It unlocks.
func (p *Packer) failLocked(job *Job, tok Token, err error) {
	if serr := p.seq.Fail(tok); serr != nil {
		p.mu.Unlock()
		p.log().Warn("texpack: failure dropped", "job", job.id, "state", job.State(), "err", serr)
		return
	}
	p.log().Warn("texpack: pass failed", "job", job.id, "state", job.State(), "err", err)
	p.endLocked(job, nil, err)
}

// completeLocked exports the result if required, ends the job and starts
// the next queued job. It unlocks.
func (p *Packer) completeLocked(job *Job, step Step) {
	result := p.targets.Second()
	exporter := p.exporter
	p.mu.Unlock()

	var err error
	if step == StepExport && exporter != nil {
		if xerr := exporter.Export(result, job.req.Format); xerr != nil {
			err = fmt.Errorf("%w: %w", ErrExport, xerr)
			p.log().Warn("texpack: export failed", "job", job.id, "state", StateDone, "err", xerr)
		} else {
			p.log().Info("texpack: exported", "job", job.id, "state", StateDone, "format", job.req.Format)
		}
	}

	p.mu.Lock()
	if p.current != job {
		// Closed during export.
		p.mu.Unlock()
		return
	}
	if err != nil {
		result = nil
	}
	p.endLocked(job, result, err)
}

// endLocked finishes job, then starts queued jobs until one submits or the
// queue is empty. It unlocks.
func (p *Packer) endLocked(job *Job, result Image, err error) {
	p.current, p.seq = nil, nil
	type failure struct {
		job *Job
		err error
	}
	var failed []failure
	var submit func()
	for len(p.queue) > 0 && submit == nil {
		next := p.queue[0]
		p.queue = p.queue[1:]
		s, serr := p.startLocked(next)
		if serr != nil {
			failed = append(failed, failure{next, serr})
			continue
		}
		submit = s
	}
	p.mu.Unlock()

	job.finish(result, err)
	p.log().Debug("texpack: job done", "job", job.id, "state", StateDone, "err", err)
	for _, f := range failed {
		f.job.finish(nil, f.err)
	}
	if submit != nil {
		submit()
	}
}

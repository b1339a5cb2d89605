package texpack

import "fmt"

// SequenceState is the state of one packing call.
type SequenceState int32

const (
	// StateIdle is a call that has not submitted work. Queued jobs are idle.
	StateIdle SequenceState = iota
	// StateComputeSubmitted waits for the compute pass.
	StateComputeSubmitted
	// StateRasterSubmitted waits for the raster pass.
	StateRasterSubmitted
	// StateDone is terminal, after success, failure or abandonment.
	StateDone
)

func (s SequenceState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateComputeSubmitted:
		return "ComputeSubmitted"
	case StateRasterSubmitted:
		return "RasterSubmitted"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("SequenceState(%d)", int32(s))
	}
}

// Step is what the caller must do after a transition.
type Step uint8

const (
	// StepNone means nothing is left to do.
	StepNone Step = iota
	// StepSubmitRaster means the raster pass must be submitted.
	StepSubmitRaster
	// StepExport means the result must be exported.
	StepExport
)

// Token identifies the submission a completion belongs to.
type Token uint64

// Sequencer validates the transitions of one packing call:
//
//	Idle -> ComputeSubmitted -> Done
//	Idle -> ComputeSubmitted -> RasterSubmitted -> Done
//
// Every submission gets a fresh Token. A completion carrying any other token,
// or arriving in the wrong state, is rejected with ErrOutOfOrder and leaves
// the state unchanged.
//
// Sequencer is not safe for concurrent use.
type Sequencer struct {
	state    SequenceState
	token    Token
	raster   bool
	finalize bool
}

// NewSequencer returns an idle sequencer for a call that does or does not
// need the raster pass and export.
func NewSequencer(raster, finalize bool) *Sequencer {
	return &Sequencer{raster: raster, finalize: finalize}
}

// State returns the current state.
func (s *Sequencer) State() SequenceState { return s.state }

// SubmitCompute moves Idle to ComputeSubmitted and returns the token the
// compute completion must carry.
func (s *Sequencer) SubmitCompute() (Token, error) {
	if s.state != StateIdle {
		return 0, fmt.Errorf("%w: submit compute in state %s", ErrOutOfOrder, s.state)
	}
	s.state = StateComputeSubmitted
	s.token++
	return s.token, nil
}

// ComputeDone records the compute completion. With a raster pass it moves
// to RasterSubmitted and returns StepSubmitRaster with the raster token.
// Otherwise it moves to Done and returns StepExport or StepNone.
func (s *Sequencer) ComputeDone(tok Token) (Step, Token, error) {
	if err := s.check(StateComputeSubmitted, tok); err != nil {
		return StepNone, 0, err
	}
	if s.raster {
		s.state = StateRasterSubmitted
		s.token++
		return StepSubmitRaster, s.token, nil
	}
	return s.finish(), 0, nil
}

// RasterDone records the raster completion and moves to Done.
func (s *Sequencer) RasterDone(tok Token) (Step, error) {
	if err := s.check(StateRasterSubmitted, tok); err != nil {
		return StepNone, err
	}
	return s.finish(), nil
}

// Fail moves to Done after a failed pass. The token must match the pending
// submission.
func (s *Sequencer) Fail(tok Token) error {
	pending := s.state == StateComputeSubmitted || s.state == StateRasterSubmitted
	if !pending || tok != s.token {
		return fmt.Errorf("%w: failure for token %d in state %s", ErrOutOfOrder, tok, s.state)
	}
	s.state = StateDone
	s.token++
	return nil
}

// Abandon moves to Done from any state and invalidates pending tokens.
func (s *Sequencer) Abandon() {
	s.state = StateDone
	s.token++
}

func (s *Sequencer) check(want SequenceState, tok Token) error {
	if s.state != want {
		return fmt.Errorf("%w: completion in state %s, want %s", ErrOutOfOrder, s.state, want)
	}
	if tok != s.token {
		return fmt.Errorf("%w: stale token %d, current %d", ErrOutOfOrder, tok, s.token)
	}
	return nil
}

func (s *Sequencer) finish() Step {
	s.state = StateDone
	s.token++
	if s.finalize {
		return StepExport
	}
	return StepNone
}

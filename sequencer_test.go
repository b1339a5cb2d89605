package texpack

import (
	"errors"
	"testing"
)

func TestSequencer_ComputeOnly(t *testing.T) {
	tests := []struct {
		name     string
		finalize bool
		want     Step
	}{
		{"preview", false, StepNone},
		{"finalize", true, StepExport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSequencer(false, tt.finalize)
			if s.State() != StateIdle {
				t.Fatalf("initial state = %s, want Idle", s.State())
			}
			tok, err := s.SubmitCompute()
			if err != nil || s.State() != StateComputeSubmitted {
				t.Fatalf("SubmitCompute() = %v, state %s", err, s.State())
			}
			step, _, err := s.ComputeDone(tok)
			if err != nil || step != tt.want || s.State() != StateDone {
				t.Errorf("ComputeDone() = %v, %v, state %s; want %v, Done", step, err, s.State(), tt.want)
			}
		})
	}
}

func TestSequencer_WithRaster(t *testing.T) {
	s := NewSequencer(true, true)
	tok, err := s.SubmitCompute()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.RasterDone(tok); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("RasterDone before compute completion = %v, want ErrOutOfOrder", err)
	}

	step, rtok, err := s.ComputeDone(tok)
	if err != nil || step != StepSubmitRaster || s.State() != StateRasterSubmitted {
		t.Fatalf("ComputeDone() = %v, %v, state %s", step, err, s.State())
	}
	if rtok == tok {
		t.Error("raster token must differ from the compute token")
	}

	// Duplicate compute completion.
	if _, _, err := s.ComputeDone(tok); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("duplicate ComputeDone = %v, want ErrOutOfOrder", err)
	}
	// Stale token for the raster pass.
	if _, err := s.RasterDone(tok); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("RasterDone with compute token = %v, want ErrOutOfOrder", err)
	}
	if s.State() != StateRasterSubmitted {
		t.Fatalf("rejected completions changed state to %s", s.State())
	}

	step, err = s.RasterDone(rtok)
	if err != nil || step != StepExport || s.State() != StateDone {
		t.Errorf("RasterDone() = %v, %v, state %s", step, err, s.State())
	}
	if _, err := s.RasterDone(rtok); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("duplicate RasterDone = %v, want ErrOutOfOrder", err)
	}
}

func TestSequencer_SubmitTwice(t *testing.T) {
	s := NewSequencer(false, false)
	if _, err := s.SubmitCompute(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitCompute(); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("second SubmitCompute = %v, want ErrOutOfOrder", err)
	}
}

func TestSequencer_Fail(t *testing.T) {
	s := NewSequencer(true, false)
	if err := s.Fail(0); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Fail in Idle = %v, want ErrOutOfOrder", err)
	}
	tok, _ := s.SubmitCompute()
	if err := s.Fail(tok + 1); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Fail with wrong token = %v, want ErrOutOfOrder", err)
	}
	if err := s.Fail(tok); err != nil || s.State() != StateDone {
		t.Errorf("Fail() = %v, state %s", err, s.State())
	}
	if _, _, err := s.ComputeDone(tok); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("completion after failure = %v, want ErrOutOfOrder", err)
	}
}

func TestSequencer_Abandon(t *testing.T) {
	s := NewSequencer(false, true)
	tok, _ := s.SubmitCompute()
	s.Abandon()
	if s.State() != StateDone {
		t.Errorf("state = %s, want Done", s.State())
	}
	if _, _, err := s.ComputeDone(tok); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("completion after Abandon = %v, want ErrOutOfOrder", err)
	}
}

func TestSequenceState_String(t *testing.T) {
	for s, want := range map[SequenceState]string{
		StateIdle:             "Idle",
		StateComputeSubmitted: "ComputeSubmitted",
		StateRasterSubmitted:  "RasterSubmitted",
		StateDone:             "Done",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

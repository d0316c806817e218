package pulsim

import "errors"

// Validation failures. All are immediate and non-recoverable for the
// current call; none of them leaves partially mutated state behind.
var (
	ErrEmptySequence    = errors.New("sequence has no channels or no instructions")
	ErrBadSamplingRate  = errors.New("sampling rate must be in (0, 1] and yield at least 4 grid points")
	ErrUnsupportedNoise = errors.New("noise type not supported by the interaction mode")
	ErrDephasingBasis   = errors.New("dephasing noise is incompatible with the digital and all bases")
	ErrBadInitialState  = errors.New("initial state has an incompatible shape")
	ErrBadEvalTimes     = errors.New("invalid evaluation-time specification")
	ErrTimeOutOfRange   = errors.New("time is outside the sequence duration")
	ErrUnknownQubit     = errors.New("unknown qubit identifier")
	ErrDuplicateQubit   = errors.New("duplicate qubit identifier in target list")
	ErrUnknownOperator  = errors.New("operator name is not registered")
	ErrSPAMInitialState = errors.New("state-preparation errors require the all-ground initial state")
)

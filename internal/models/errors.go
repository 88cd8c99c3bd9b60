package models

import "errors"

// Pipeline error taxonomy
var (
	// ErrMissingSource means a participant input file is absent or empty
	ErrMissingSource = errors.New("missing source")
	// ErrInsufficientEvidence means a required window holds too few readings
	ErrInsufficientEvidence = errors.New("insufficient evidence")
	// ErrCohortEmpty means no usable glucose data exists for any participant
	ErrCohortEmpty = errors.New("no usable glucose data in cohort")
)

package safeband

import "errors"

// Configuration errors. All of them surface at construction time; a running
// simulation never returns an error.
var (
	ErrInvalidRange      = errors.New("invalid sampling range")
	ErrInvalidBand       = errors.New("invalid safety band")
	ErrInvalidWeights    = errors.New("invalid weights")
	ErrInvalidStrategy   = errors.New("invalid correction strategy")
	ErrInvalidPolicy     = errors.New("invalid correction policy")
	ErrInvalidIterations = errors.New("invalid iteration count")
	ErrInvalidInitialF   = errors.New("invalid initial F")
)

package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the engine. Use errors.Is to classify.
var (
	// ErrDataFault means "skip this tick, do not compute".
	ErrDataFault           = errors.New("data fault")
	ErrInsufficientHistory = fmt.Errorf("%w: insufficient history", ErrDataFault)
	ErrGap                 = fmt.Errorf("%w: gap in periods", ErrDataFault)
	ErrInvalidPeriod       = fmt.Errorf("%w: invalid period", ErrDataFault)

	// ErrOrderFault covers venue-side rejection or cancellation.
	ErrOrderFault     = errors.New("order fault")
	ErrOrderRejected  = fmt.Errorf("%w: rejected", ErrOrderFault)
	ErrOrderCancelled = fmt.Errorf("%w: cancelled", ErrOrderFault)

	// ErrReconciliation means a filled order carried unparsable fields.
	ErrReconciliation = errors.New("reconciliation fault")

	// ErrConfig is only returned at construction time.
	ErrConfig = errors.New("config fault")
)

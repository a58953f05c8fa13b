package replay

import (
	"fmt"
	"math"
)

// DefaultPriorityEpsilon keeps priorities derived from zero TD error positive.
const DefaultPriorityEpsilon = 1e-5

// PrioritiesFromTDErrors converts TD errors into raw priorities |δ| + eps.
// The buffer applies the alpha exponent itself.
func PrioritiesFromTDErrors(tdErrors []float64, eps float64) []float64 {
	out := make([]float64, len(tdErrors))
	for i, td := range tdErrors {
		out[i] = math.Abs(td) + eps
	}
	return out
}

func validatePriorities(priorities []float64) error {
	for i, p := range priorities {
		if !(p > 0) || math.IsInf(p, 1) {
			return fmt.Errorf("%w: priorities[%d] = %g", ErrInvalidPriority, i, p)
		}
	}
	return nil
}

func validateIndices(indices []int, n int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexRange, idx, n)
		}
	}
	return nil
}

// checkUpdate validates an UpdatePriorities call against a buffer of length n.
func checkUpdate(indices []int, priorities []float64, n int) error {
	if len(indices) != len(priorities) {
		return fmt.Errorf("%w: %d indices vs %d priorities", ErrLengthMismatch, len(indices), len(priorities))
	}
	if err := validatePriorities(priorities); err != nil {
		return err
	}
	return validateIndices(indices, n)
}

// checkPush validates the optional priorities of a Push call.
func checkPush(n int, o pushOptions) error {
	if !o.explicit {
		return nil
	}
	if len(o.priorities) != n {
		return fmt.Errorf("%w: %d transitions vs %d priorities", ErrLengthMismatch, n, len(o.priorities))
	}
	return validatePriorities(o.priorities)
}

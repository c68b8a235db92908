package orders

import (
	"errors"
	"fmt"
	"sort"

	"github.com/amendes/orderdesk/internal/validation"
)

// Sentinel errors returned by the lifecycle manager. A cross-tenant lookup is
// ErrNotFound, never a forbidden error, so existence does not leak across
// tenants.
var (
	ErrNotFound            = errors.New("orders: order not found")
	ErrNotAQuote           = errors.New("orders: not a quote")
	ErrInsufficientBalance = errors.New("orders: payment exceeds remaining balance")
)

// ValidationError rejects an operation before any mutation; the caller can
// correct the input and retry.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f := range e.Violations {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("orders: invalid input: %v", fields)
}

func validationErr(v validation.Violations) error {
	return &ValidationError{Violations: v}
}

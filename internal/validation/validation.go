package validation

import "strings"

// Violations collects field-level validation failures, keyed by field name.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

// AtMostFloat flags val when it exceeds limit beyond the given tolerance.
func AtMostFloat(field string, val, limit, tolerance float64, v Violations) {
	if val > limit+tolerance {
		v[field] = "exceeds_limit"
	}
}

package validator

import "fmt"

// Positive validates that a number is greater than zero.
func Positive[T Numeric](field string, value T) Rule {
	var zero T
	return Rule{
		Check: func() bool {
			return value > zero
		},
		Error: failure(field, "positive", "must be greater than zero"),
	}
}

// Min validates that a number is greater than or equal to min.
func Min[T Numeric](field string, value, min T) Rule {
	return Rule{
		Check: func() bool {
			return value >= min
		},
		Error: failure(field, "min", fmt.Sprintf("must be at least %v", min)),
	}
}

// Max validates that a number is less than or equal to max.
func Max[T Numeric](field string, value, max T) Rule {
	return Rule{
		Check: func() bool {
			return value <= max
		},
		Error: failure(field, "max", fmt.Sprintf("must be at most %v", max)),
	}
}

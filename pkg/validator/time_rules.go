package validator

import (
	"fmt"
	"time"
)

// Set validates that an optional value was provided.
func Set[T any](field string, value *T) Rule {
	return Rule{
		Check: func() bool {
			return value != nil
		},
		Error: failure(field, "required", "field is required"),
	}
}

// Unset validates that an optional value was left out.
func Unset[T any](field string, value *T) Rule {
	return Rule{
		Check: func() bool {
			return value == nil
		},
		Error: failure(field, "empty", "must be empty"),
	}
}

// After validates that value is strictly after ref. A nil value passes.
func After(field string, value *time.Time, ref time.Time) Rule {
	return Rule{
		Check: func() bool {
			return value == nil || value.After(ref)
		},
		Error: failure(field, "date_after", fmt.Sprintf("must be after %s", ref.UTC().Format(time.RFC3339))),
	}
}

// NotBefore validates that value does not precede ref. The rule passes when
// either side is nil.
func NotBefore(field string, value, ref *time.Time) Rule {
	return Rule{
		Check: func() bool {
			return value == nil || ref == nil || !value.Before(*ref)
		},
		Error: failure(field, "date_not_before", "must not precede the start date"),
	}
}

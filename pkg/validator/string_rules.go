package validator

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Required validates that a string is not empty after trimming whitespace.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: failure(field, "required", "field is required"),
	}
}

// Empty validates that a string carries no value.
func Empty(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return value == ""
		},
		Error: failure(field, "empty", "must be empty"),
	}
}

func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return utf8.RuneCountInString(value) <= max
		},
		Error: failure(field, "max_length", fmt.Sprintf("must be at most %d characters long", max)),
	}
}

// OneOf validates that value is one of allowed. An empty value passes; pair
// it with Required when the field is mandatory.
func OneOf(field, value string, allowed ...string) Rule {
	return Rule{
		Check: func() bool {
			return value == "" || slices.Contains(allowed, value)
		},
		Error: failure(field, "one_of", fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))),
	}
}

package user

import (
	"math"

	"user-service/pkg/validation"
)

var createRules = validation.Rules{
	validation.Field("name", "Name", validation.String, validation.Required),
	validation.Field("email", "Email", validation.String, validation.Required, validation.Email),
	validation.Field("password", "Password", validation.String, validation.Required),
	validation.Field("age", "Age", validation.Numeric),
}

var updateRules = validation.Rules{
	validation.Field("name", "Name", validation.String),
	validation.Field("email", "Email", validation.String, validation.Email),
	validation.Field("password", "Password", validation.String),
	validation.Field("age", "Age", validation.Numeric),
}

const (
	msgAgeInteger      = "The Age must be a non-negative integer."
	msgPasswordTooLong = "The Password must be at most 72 bytes."
	maxAge             = math.MaxInt32
)

// stringField returns the value of a present, non-blank string field.
func stringField(fields validation.Record, key string) (string, bool) {
	v, ok := fields[key]
	if !ok || validation.IsBlank(v) {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ageField converts a present age to an int. The returned message is empty
// when the age is absent, valid, or already rejected as non-numeric.
func ageField(fields validation.Record) (*int, string) {
	v, ok := fields["age"]
	if !ok || validation.IsBlank(v) {
		return nil, ""
	}
	n, ok := validation.ToNumber(v)
	if !ok {
		return nil, ""
	}
	if n < 0 || n > maxAge || n != math.Trunc(n) {
		return nil, msgAgeInteger
	}
	age := int(n)
	return &age, ""
}

// checkFields runs the declared rules plus the age range check.
func checkFields(fields validation.Record, rules validation.Rules) (*int, []string) {
	errs := validation.CheckFields(fields, rules)
	age, msg := ageField(fields)
	if msg != "" {
		errs = append(errs, msg)
	}
	return age, errs
}

// Package validation checks decoded request bodies against declarative field rules.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Record is a decoded JSON object as received in a request body.
type Record map[string]any

// Directive is a single constraint applied to a field.
type Directive int

const (
	// Required rejects absent, null or blank values.
	Required Directive = iota + 1
	// String rejects values that are not JSON strings.
	String
	// Numeric rejects values that do not parse as a finite number.
	Numeric
	// Email rejects values that do not look like local@domain.tld.
	Email
)

var directiveNames = map[string]Directive{
	"required": Required,
	"string":   String,
	"numeric":  Numeric,
	"email":    Email,
}

// String returns the keyword used for the directive in rule strings.
func (d Directive) String() string {
	for name, v := range directiveNames {
		if v == d {
			return name
		}
	}
	return fmt.Sprintf("Directive(%d)", int(d))
}

// Rule declares the directives for one field. Label is used in messages and
// defaults to Field.
type Rule struct {
	Field      string
	Label      string
	Directives []Directive
}

// Rules is an ordered rule set; messages follow slice order.
type Rules []Rule

// Field builds a Rule.
func Field(name, label string, directives ...Directive) Rule {
	return Rule{Field: name, Label: label, Directives: directives}
}

// ParseRule builds a Rule from the pipe-delimited form "Label|string|required".
// The first token is a label only when it is not a directive keyword.
// Unknown tokens after the label are ignored.
func ParseRule(field, def string) Rule {
	r := Rule{Field: field}
	for i, tok := range strings.Split(def, "|") {
		d, ok := directiveNames[tok]
		if !ok {
			if i == 0 {
				r.Label = tok
			}
			continue
		}
		r.Directives = append(r.Directives, d)
	}
	return r
}

func (r Rule) label() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Field
}

func (r Rule) has(d Directive) bool {
	for _, v := range r.Directives {
		if v == d {
			return true
		}
	}
	return false
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CheckFields evaluates record against rules and returns one message per
// violated directive, in rule order then directive order. It returns nil when
// the record satisfies every rule.
func CheckFields(record Record, rules Rules) []string {
	var errs []string

	for _, r := range rules {
		label := r.label()
		value, ok := record[r.Field]
		present := ok && !IsBlank(value)

		if r.has(Required) && !present {
			errs = append(errs, fmt.Sprintf("%s is required.", label))
		}
		if !present {
			continue
		}

		for _, d := range r.Directives {
			switch d {
			case String:
				if _, isString := value.(string); !isString {
					errs = append(errs, fmt.Sprintf("The %s must be a string.", label))
				}
			case Numeric:
				if _, isNumber := ToNumber(value); !isNumber {
					errs = append(errs, fmt.Sprintf("The %s must be a number.", label))
				}
			case Email:
				if !emailPattern.MatchString(Text(value)) {
					errs = append(errs, fmt.Sprintf("The %s must be a valid email address.", label))
				}
			}
		}
	}

	return errs
}

// IsBlank reports whether v is null or its text form is empty after trimming.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	return strings.TrimSpace(Text(v)) == ""
}

// Text returns the text form of a decoded JSON value.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Text(e)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object]"
	default:
		return fmt.Sprint(t)
	}
}

// ToNumber converts a decoded JSON value to a finite float64. Strings are
// parsed after trimming; other kinds are rejected.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case interface{ Float64() (float64, error) }:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Package normalize maps dialect-specific run-properties keys and values
// onto the legacy parameter names the reconciler and store expect. Both
// transforms are declarative and table-driven; applying a rule set twice
// yields the same result as once.
package normalize

import (
	"strconv"
	"strings"
	"unicode"
)

// Kind selects a value reformat.
type Kind int

const (
	// StringCoerce passes the value through unchanged.
	StringCoerce Kind = iota
	// IntegerCoerce renders a numeric value without a fractional part.
	IntegerCoerce
	// FloatCoerce renders a numeric value in plain decimal notation
	// with at least one fractional digit.
	FloatCoerce
	// Uppercase folds the value to upper case.
	Uppercase
	// Lowercase folds the value to lower case.
	Lowercase
	// SentenceCase upper-cases the first rune and lower-cases the rest.
	SentenceCase
	// DigitsPad2 strips non-digits and left-pads the remainder to two
	// characters; a value with no digits becomes the literal "NaN".
	DigitsPad2
)

// AliasRule copies the source key's value onto every target key,
// overwriting existing values. Rules apply in declaration order, so a
// later source wins when two rules share a target.
type AliasRule struct {
	Source  string
	Targets []string
}

// Reformat applies one Kind to one key.
type Reformat struct {
	Key  string
	Kind Kind
}

// Rules is one dialect's normalization table.
type Rules struct {
	Aliases   []AliasRule
	Reformats []Reformat
}

// Apply runs alias extension then value reformatting over a copy of
// params. The input map is never modified.
func (r Rules) Apply(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}

	for _, rule := range r.Aliases {
		v, ok := out[rule.Source]
		if !ok {
			continue
		}
		for _, target := range rule.Targets {
			out[target] = v
		}
	}

	for _, rf := range r.Reformats {
		v, ok := out[rf.Key]
		if !ok || v == "" {
			continue
		}
		out[rf.Key] = reformatValue(v, rf.Kind)
	}

	return out
}

// reformatValue applies one Kind. Coercion failures leave the value
// unchanged, except DigitsPad2 which signals failure with "NaN".
func reformatValue(v string, kind Kind) string {
	switch kind {
	case IntegerCoerce:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return v
		}
		return strconv.FormatInt(int64(f), 10)
	case FloatCoerce:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return v
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case Uppercase:
		return strings.ToUpper(v)
	case Lowercase:
		return strings.ToLower(v)
	case SentenceCase:
		runes := []rune(strings.ToLower(v))
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	case DigitsPad2:
		var digits []rune
		for _, r := range v {
			if unicode.IsDigit(r) {
				digits = append(digits, r)
			}
		}
		if len(digits) == 0 {
			return "NaN"
		}
		s := string(digits)
		for len(s) < 2 {
			s = "0" + s
		}
		return s
	default:
		return v
	}
}

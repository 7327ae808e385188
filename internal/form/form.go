// Package form provides controlled-form state for the server-rendered pages:
// per-field values, per-field validation messages, and an aggregate validity
// flag. Messages mirror the browser's constraint-validation wording so the
// server-side check reads the same as the client-side one.
package form

import (
	"fmt"
	"regexp"
)

// Field describes one tracked input.
type Field struct {
	Name      string
	Required  bool
	MinLength int
	Pattern   *regexp.Regexp
	// PatternMessage overrides the generic pattern-mismatch text.
	PatternMessage string
}

// Form tracks values and validation messages for a fixed set of fields. An
// empty message means the field is valid.
type Form struct {
	fields []Field
	values map[string]string
	errors map[string]string
}

// New builds a form tracking the given fields, all empty and unvalidated.
func New(fields ...Field) *Form {
	return &Form{
		fields: fields,
		values: make(map[string]string, len(fields)),
		errors: make(map[string]string, len(fields)),
	}
}

// Set updates one field's value and re-runs that field's validity check.
// Unknown names are ignored.
func (f *Form) Set(name, value string) {
	for _, fld := range f.fields {
		if fld.Name != name {
			continue
		}
		f.values[name] = value
		f.errors[name] = validate(fld, value)
		return
	}
}

// SetAll runs Set for every tracked field against the given lookup function,
// typically (*http.Request).FormValue.
func (f *Form) SetAll(lookup func(string) string) {
	for _, fld := range f.fields {
		f.Set(fld.Name, lookup(fld.Name))
	}
}

// Value returns the current value of a field.
func (f *Form) Value(name string) string {
	return f.values[name]
}

// Values returns a copy of all current values.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Error returns the current validation message of a field, "" when valid.
func (f *Form) Error(name string) string {
	return f.errors[name]
}

// Errors returns every non-empty validation message keyed by field.
func (f *Form) Errors() map[string]string {
	out := make(map[string]string)
	for k, v := range f.errors {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// SetError forces an external message onto a field, e.g. a cross-field check
// done at the call site.
func (f *Form) SetError(name, message string) {
	f.errors[name] = message
}

// Valid reports the logical AND of every tracked field's validity. Fields
// never touched count as invalid when required.
func (f *Form) Valid() bool {
	for _, fld := range f.fields {
		if _, touched := f.values[fld.Name]; !touched {
			if fld.Required {
				return false
			}
			continue
		}
		if f.errors[fld.Name] != "" {
			return false
		}
	}
	return true
}

// Reset clears all values and messages.
func (f *Form) Reset() {
	f.values = make(map[string]string, len(f.fields))
	f.errors = make(map[string]string, len(f.fields))
}

func validate(fld Field, value string) string {
	if value == "" {
		if fld.Required {
			return "Please fill in this field."
		}
		return ""
	}
	if fld.MinLength > 0 && len([]rune(value)) < fld.MinLength {
		return fmt.Sprintf("Please lengthen this text to %d characters or more.", fld.MinLength)
	}
	if fld.Pattern != nil && !fld.Pattern.MatchString(value) {
		if fld.PatternMessage != "" {
			return fld.PatternMessage
		}
		return "Please match the requested format."
	}
	return ""
}
